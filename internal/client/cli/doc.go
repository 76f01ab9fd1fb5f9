// Package cli is the vaultdrop command line: account commands, send and
// fetch of share links, and the local history. Commands are cobra commands
// built over the client services; NewRootCmd wires them.
package cli
