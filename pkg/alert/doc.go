// Package alert delivers operational escalations raised by the isolation
// layer: enforcement faults, audit storage outages. Notifiers are
// best-effort by contract; they log their own failures and never return
// errors into the paths that raise them.
package alert
