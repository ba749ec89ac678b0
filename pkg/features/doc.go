// Package features wraps node objects (VRFs, SNMP communities) on top of the
// command reference. Each accessor looks up its feature record for the
// device's API and product and drives the node through pkg/node, so platform
// differences live in the reference documents instead of in code.
//
// The built-in documents under reference/ are embedded; DefaultReference
// loads them.
package features
