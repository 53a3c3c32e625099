package util

import (
	"fmt"
	"os"
	"strconv"

	ps "github.com/mitchellh/go-ps"
)

// AcquirePidFile writes this process' pid to pathToFile, refusing if
// the file already holds the pid of a live process. The encode worker
// uses this as a single-instance guard: two consumers on the same
// host would double-process every redelivered job.
func AcquirePidFile(pathToFile string) error {
	if IsRunningInOtherProcess(pathToFile) {
		return fmt.Errorf("pid file %s belongs to a running process", pathToFile)
	}
	return WritePidFile(pathToFile)
}

// IsRunningInOtherProcess returns true if the pid file at pathToFile
// contains a pid belonging to another live process.
func IsRunningInOtherProcess(pathToFile string) bool {
	pid := ReadPidFile(pathToFile)
	return pid != 0 && pid != os.Getpid() && ProcessIsRunning(pid)
}

// ReadPidFile returns the pid from the specified file, or zero if the
// file is missing or unparsable.
func ReadPidFile(pathToFile string) int {
	if data, err := os.ReadFile(pathToFile); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil {
			return pid
		}
	}
	return 0
}

// WritePidFile writes this process' pid to the specified file.
func WritePidFile(pathToFile string) error {
	pidStr := strconv.Itoa(os.Getpid())
	return os.WriteFile(pathToFile, []byte(pidStr), 0664)
}

// ReleasePidFile deletes the pid file if it belongs to this process.
func ReleasePidFile(pathToFile string) error {
	if pid := ReadPidFile(pathToFile); pid != 0 && pid != os.Getpid() {
		return fmt.Errorf("pid file %s belongs to pid %d, not deleting", pathToFile, pid)
	}
	return os.Remove(pathToFile)
}

// ProcessIsRunning returns true if the process with pid is running.
// This uses go-ps internally because golang's os.FindProcess always
// returns a process on *nix, even when no process with that pid is
// running.
func ProcessIsRunning(pid int) bool {
	proc, _ := ps.FindProcess(pid)
	return proc != nil
}
