//go:build mage

package main

import "fmt"

// Worker builds the mela-worker container image used by the scan engine.
// See prd004-engine-bridge for the wire protocol the worker speaks.
func Worker() error {
	fmt.Println("[worker] Build the mela-worker image (JHUGen-MELA plus the line-protocol adapter).")
	fmt.Println("[worker] Not yet implemented.")
	return nil
}
