/*
Package streaming copies large files into HTTP responses with per-write deadlines.

Feed files are served from an application server that has no WriteTimeout,
since conversions on the same server can run for minutes. [Copy] applies a
deadline to every chunk instead, through [net/http.ResponseController], and
flushes after each chunk so clients see data as it is read:

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := streaming.Copy(r.Context(), w, f, streaming.DefaultConfig())
	if errors.Is(err, streaming.ErrClientGone) {
		return nil
	}

Writers that do not support deadlines or flushing, such as
httptest.ResponseRecorder, are streamed without them.
*/
package streaming
