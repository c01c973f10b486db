package doctor

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CPUFeatures reports the SIMD extensions x/sys/cpu detects on the host.
func CPUFeatures() []string {
	var out []string

	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add("sse4.1", cpu.X86.HasSSE41)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
		add("fma", cpu.X86.HasFMA)
		add("avx512f", cpu.X86.HasAVX512F)
	case "arm64":
		add("asimd", cpu.ARM64.HasASIMD)
		add("fphp", cpu.ARM64.HasFPHP)
		add("sve", cpu.ARM64.HasSVE)
	}

	return out
}
