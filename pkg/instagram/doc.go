// Package instagram is the HTTP client for the private web API: login with
// two-factor and checkpoint handling, session probing and video publishing.
// Auth state is sealed into an opaque JSON blob that callers persist without
// inspecting.
package instagram
