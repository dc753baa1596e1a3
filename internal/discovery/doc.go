// Package discovery publishes and finds probe servers over mDNS.
//
// A running mspprobe-server announces itself as a "_mspprobe._tcp" service
// on the local domain, carrying its target profile name in TXT records.
// The scanner browses for those announcements so CLI users can find a probe
// server without knowing its address.
package discovery
