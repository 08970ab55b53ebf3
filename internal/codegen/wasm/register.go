package wasm

import "compiler/internal/target"

// Platform is the canonical WebAssembly target.
var Platform = target.Platform{
	Triple:  "wasm32-unknown-unknown",
	Arch:    "wasm32",
	OS:      "unknown",
	ABI:     "unknown",
	Backend: "wasm",
}

// WASIPlatform targets WASI hosts. Code generation is identical; the
// triple distinguishes the runtime contract.
var WASIPlatform = target.Platform{
	Triple:  "wasm32-wasi",
	Arch:    "wasm32",
	OS:      "wasi",
	ABI:     "wasi",
	Backend: "wasm",
}

func init() {
	factory := func(tp target.Platform) target.CodeGenerator { return New(tp) }
	target.Default().Register(Platform, factory)
	target.Default().Register(WASIPlatform, factory)
}
