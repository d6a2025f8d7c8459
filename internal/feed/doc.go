// Package feed manages the per-worker feed files a browser reads as its camera.
//
// Each test worker gets one file, <video dir>/<worker id>.<mjpeg|y4m>. The
// browser is launched once with that path; swapping what the worker's camera
// shows means replacing the file's contents. [Publisher] copies a converted
// file into place through a temporary file and a rename, so the browser never
// opens a half-written feed. [Swapper] combines a converter with a publisher to
// turn an arbitrary source file into a worker's feed in one call.
package feed
