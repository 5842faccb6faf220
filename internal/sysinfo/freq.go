package sysinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const kHzPerMHz = 1000

// readScalingCurFreq reads cpuN/cpufreq/scaling_cur_freq for every numbered
// cpu directory. Values are kHz in sysfs and returned as MHz, ordered by
// core number. Cores without cpufreq are skipped.
func readScalingCurFreq(cpuDir string) ([]float64, error) {
	entries, err := os.ReadDir(cpuDir)
	if err != nil {
		return nil, err
	}

	type coreFreq struct {
		index int
		mhz   float64
	}
	var cores []coreFreq

	for _, entry := range entries {
		name := entry.Name()
		index, ok := cpuIndex(name)
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(cpuDir, name, "cpufreq", "scaling_cur_freq"))
		if err != nil {
			continue
		}
		khz, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			continue
		}
		cores = append(cores, coreFreq{index: index, mhz: float64(khz) / kHzPerMHz})
	}

	sort.Slice(cores, func(i, j int) bool { return cores[i].index < cores[j].index })

	freqs := make([]float64, 0, len(cores))
	for _, c := range cores {
		freqs = append(freqs, c.mhz)
	}

	return freqs, nil
}

// cpuIndex parses "cpu12" into 12. Names like "cpufreq" or "cpuidle" are
// rejected.
func cpuIndex(name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, "cpu")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	index, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}

	return index, true
}

// readCPUInfoMHz collects every "cpu MHz" line of /proc/cpuinfo.
func readCPUInfoMHz(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var freqs []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu MHz") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		mhz, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		freqs = append(freqs, mhz)
	}

	return freqs, scanner.Err()
}
