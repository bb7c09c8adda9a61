// Package system reports host details used to enrich discovery logs.
package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// HostInfo summarizes the machine discovery is running on.
type HostInfo struct {
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion,omitempty"`
}

// Describe collects host details, falling back to compile-time values when
// the platform refuses to answer.
func Describe() HostInfo {
	info, err := host.Info()
	if err != nil {
		return HostInfo{OS: runtime.GOOS, Platform: runtime.GOOS}
	}
	return HostInfo{
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
	}
}
