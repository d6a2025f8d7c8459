// Package browser builds the launch flags that point a Chromium-based browser
// at a camfeed feed file instead of a real camera.
//
//	cam, err := browser.NewFakeCamera("/srv/videos/worker-1.mjpeg", true)
//	if err != nil {
//		return err
//	}
//	args := cam.Merge(existingArgs)
package browser
