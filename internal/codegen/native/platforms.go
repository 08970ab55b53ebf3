package native

import "compiler/internal/target"

// LinuxAMD64 is the default native Linux target.
var LinuxAMD64 = target.Platform{
	Triple:  "x86_64-unknown-linux-gnu",
	Arch:    "x86_64",
	OS:      "linux",
	ABI:     "gnu",
	Backend: "native",
}

// DarwinARM64 is the default native macOS target.
var DarwinARM64 = target.Platform{
	Triple:  "aarch64-apple-darwin",
	Arch:    "aarch64",
	OS:      "darwin",
	ABI:     "darwin",
	Backend: "native",
}
