// Command configctl normalizes catalog documents and validates or prices
// selections offline, or against a running server over gRPC.
package main

func main() {
	Execute()
}
