// Package localserver serves the admin API on a Unix domain socket.
//
// The socket is created with mode 0600, so file system permissions decide
// who may clear the cache or change the encode quality. Requests on the
// socket need no admin token. A stale socket left by a crashed process is
// replaced; any other file at the path is an error.
package localserver
