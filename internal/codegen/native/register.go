//go:build native

package native

import "compiler/internal/target"

func init() {
	factory := func(tp target.Platform) target.CodeGenerator { return New(tp) }
	target.Default().Register(LinuxAMD64, factory)
	target.Default().Register(DarwinARM64, factory)
}
