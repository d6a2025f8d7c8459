// Command camfeed converts media into fake camera feeds without running the
// HTTP server.
//
// Usage:
//
//	camfeed <command> [arguments]
//
// Commands:
//
//	convert <source>        Convert a source into a native feed file and
//	                        print its path. Native .mjpeg/.y4m sources are
//	                        printed unchanged.
//
//	lookup <source>         Print the cached feed path for a source. Exits 1
//	                        when nothing is cached.
//
//	swap <worker> <source>  Convert a source and publish it as
//	                        VIDEO_DIR/<worker>.<ext>.
//
//	probe                   Run the encoder with -version and print its path
//	                        and version, or installation guidance.
//
//	clear-cache [-yes]      Remove converted files from VIDEO_DIR/.cache and
//	                        empty the cache manifest. Asks first when stdin
//	                        is a terminal, unless -yes is given.
//
//	args [-auto-accept] [-json] <feed>
//	                        Print the browser flags that play a feed file, or
//	                        a goog:chromeOptions fragment with -json.
//
// Exit codes are 0 on success, 1 on general failure, 2 on usage errors, 3 when
// the source or worker is rejected and 4 when the encoder fails.
//
// Configuration is read the same way as the server: defaults, .env, the YAML
// file named by CAMFEED_CONFIG, then environment variables.
package main
