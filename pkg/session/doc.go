// Package session owns the lifecycle of one account's authenticated
// Instagram session: load-or-create, validity probe, two-factor and
// checkpoint challenge resolution, and atomic persistence to disk.
//
// The Manager recovers internally from corrupt or missing session files and
// from failed freshness probes; both become a fresh login. Challenge
// resolution failures and exhausted retry budgets are terminal and surface
// as typed errors carrying the username and machine state.
package session
