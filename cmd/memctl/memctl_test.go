package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/pool"
)

func TestClassesCommand(t *testing.T) {
	tests := []struct {
		name        string
		table       string
		json        bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "default table",
			table:       "default",
			wantContain: []string{"Size classes: Default", "32,768", "chunk"},
		},
		{
			name:        "coarse table",
			table:       "Coarse",
			wantContain: []string{"Size classes: Coarse (12 buckets"},
		},
		{
			name:        "fine as JSON",
			table:       "fine",
			json:        true,
			wantContain: []string{`"table": "Fine"`, `"chunk_size": 16`},
		},
		{
			name:    "unknown table",
			table:   "huge",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			jsonOut = tt.json
			classesTable = tt.table

			output, err := captureOutput(t, runClasses)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.json {
				var report classesReport
				assertJSON(t, output, &report)
				assert.Equal(t, pool.LargeThreshold, report.Classes[len(report.Classes)-1].ChunkSize)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestBuildClassesReport(t *testing.T) {
	report, err := buildClassesReport("default")
	require.NoError(t, err)
	for _, c := range report.Classes {
		assert.GreaterOrEqual(t, c.ChunksPerPage, 8)
		assert.Equal(t, c.PageBytes, c.ChunksPerPage*c.ChunkSize+c.WastePerPage)
	}
}

func TestStatusCommand(t *testing.T) {
	resetFlags()
	jsonOut = true
	statusSizes = "24,40000"
	statusCount = 100
	statusPurge = true

	output, err := captureOutput(t, runStatus)
	require.NoError(t, err)

	var report statusReport
	assertJSON(t, output, &report)
	assert.Equal(t, []int{24, 40000}, report.Sizes)
	assert.Zero(t, report.Failed)
	assert.GreaterOrEqual(t, report.PoolSize, int64(100*40000))

	var used int
	for _, st := range report.Buckets {
		if st.ChunkSize == 32 {
			used = st.UsedChunks
		}
	}
	assert.GreaterOrEqual(t, used, 100)
	assert.Less(t, report.AfterFree, report.PoolSize)
	assert.LessOrEqual(t, report.AfterPurge, report.AfterFree)
}

func TestStatusCommand_Text(t *testing.T) {
	resetFlags()
	statusSizes = "100"
	statusCount = 10
	statusPurge = true

	output, err := captureOutput(t, runStatus)
	require.NoError(t, err)
	assertContains(t, output, []string{"Pool size:", "chunk", "112", "Purged:"})
}

func TestStatusCommand_BadSizes(t *testing.T) {
	resetFlags()
	for _, sizes := range []string{"", "abc", "24,-1", "0"} {
		statusSizes = sizes
		_, err := captureOutput(t, runStatus)
		assert.Error(t, err, "sizes %q", sizes)
	}
}

func TestStressCommand(t *testing.T) {
	resetFlags()
	jsonOut = true
	stressWorkers = 4
	stressOps = 5000
	stressMaxSize = 2048
	stressSeed = 7

	output, err := captureOutput(t, runStress)
	require.NoError(t, err)

	var report stressReport
	assertJSON(t, output, &report)
	assert.Zero(t, report.Corrupted)
	assert.Zero(t, report.Failed)
	assert.Equal(t, report.SizeBefore, report.SizeAfter)
	assert.GreaterOrEqual(t, report.SizePeak, report.SizeBefore)
}

func TestStressCommand_InvalidArgs(t *testing.T) {
	_, err := buildStressReport(0, 10, 10, 1)
	assert.Error(t, err)
	_, err = buildStressReport(1, 10, 0, 1)
	assert.Error(t, err)
}

func TestRegistryCommand(t *testing.T) {
	resetFlags()
	jsonOut = true
	registryCleanup = true

	output, err := captureOutput(t, runRegistry)
	require.NoError(t, err)

	var report registryReport
	assertJSON(t, output, &report)
	locations := map[string]bool{}
	for _, e := range report.Allocators {
		locations[e.Location] = true
	}
	assert.True(t, locations["heap"])
	assert.True(t, locations["virtual"])
	assert.True(t, locations["pool"])
	assert.Positive(t, report.Guards)
}

func TestRegistryCommand_Text(t *testing.T) {
	resetFlags()
	registryCleanup = false

	output, err := captureOutput(t, runRegistry)
	require.NoError(t, err)
	assertContains(t, output, []string{"Registered allocators:", "heap: go runtime", "pool Default"})
}

func TestQuietSuppressesOutput(t *testing.T) {
	resetFlags()
	quiet = true
	classesTable = "default"

	output, err := captureOutput(t, runClasses)
	require.NoError(t, err)
	assert.Empty(t, output)
}

func TestInitLogging(t *testing.T) {
	t.Cleanup(func() {
		resetFlags()
		_ = logger.Init(logger.Options{})
	})

	resetFlags()
	require.NoError(t, initLogging())

	logLevel = "loud"
	require.Error(t, initLogging())

	logLevel = "debug"
	logFile = filepath.Join(t.TempDir(), "memctl.log")
	require.NoError(t, initLogging())
	logger.Debug("probe", "k", 1)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "probe")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
	assert.Equal(t, "1,234,567", formatNumber(1234567))

	sizes, err := parseSizes(" 24, 100 ,,4000")
	require.NoError(t, err)
	assert.Equal(t, []int{24, 100, 4000}, sizes)
}
