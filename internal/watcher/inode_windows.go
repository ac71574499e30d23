//go:build windows

package watcher

// getInode has no useful answer on Windows; real file identity would need
// GetFileInformationByHandle, which is not worth it for a development
// platform. Callers treat 0 as "unknown".
func getInode(_ any) uint64 {
	return 0
}
