// Command cachesync runs the offline cache and its change feed outside the
// POS app, for inspecting and repairing a cache directory.
package main

func main() {
	Execute()
}
