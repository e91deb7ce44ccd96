// Package device defines interrupt sources and the registry that maps a
// stable device identifier to its label and fixed priority.
//
// The registry is an open set: devices are usually loaded once from
// configuration at startup, but Register may add more while the controller
// is running. Higher priority values are serviced first.
//
// # Name Resolution
//
// Console users refer to devices by name. Resolve accepts the exact ID or
// label (case-insensitive) or any unambiguous prefix of either, so "key"
// resolves to "keyboard" when no other device starts with "key".
package device
