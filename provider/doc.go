// Package provider implements a generic provider framework using Go generics
// for swappable backends.
//
// Speech recognition and language-model backends register named factories in
// a Registry; the server selects one at startup from configuration and can
// cache instances for reuse.
//
// # Usage
//
//	reg := provider.NewRegistry[MyProvider]()
//	reg.RegisterFactory("default", myFactory)
//	p, err := reg.Create("default", cfg)
package provider
