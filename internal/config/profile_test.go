package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fairhire/internal/errors"
	"fairhire/internal/fairness"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseThresholdProfile(t *testing.T) {
	base := fairness.DefaultThresholds()

	t.Run("top level keys overlay base", func(t *testing.T) {
		th, err := ParseThresholdProfile([]byte("demographicParityDifference: 0.05\nflagLowSeverity: true\n"), base)
		require.NoError(t, err)
		assert.Equal(t, 0.05, th.DemographicParityDifference)
		assert.True(t, th.FlagLowSeverity)
		assert.Equal(t, base.DisparateImpactRatio, th.DisparateImpactRatio)
		assert.Equal(t, base.Weights, th.Weights)
	})

	t.Run("nested thresholds document", func(t *testing.T) {
		doc := "name: strict\nthresholds:\n  disparateImpactRatio: 0.9\n  weights:\n    falsePositiveRate: 2\n"
		th, err := ParseThresholdProfile([]byte(doc), base)
		require.NoError(t, err)
		assert.Equal(t, 0.9, th.DisparateImpactRatio)
		assert.Equal(t, 2, th.Weights.FalsePositiveRate)
		assert.Equal(t, base.Weights.DisparateImpactHigh, th.Weights.DisparateImpactHigh)
	})

	t.Run("empty document returns base", func(t *testing.T) {
		th, err := ParseThresholdProfile([]byte("  \n"), base)
		require.NoError(t, err)
		assert.Equal(t, base, th)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		th, err := ParseThresholdProfile([]byte("demographicParityDifference: [oops"), base)
		require.Error(t, err)
		assert.Equal(t, base, th)
	})

	t.Run("incoherent policy is rejected", func(t *testing.T) {
		th, err := ParseThresholdProfile([]byte("disparateImpactHigh: 0.95\n"), base)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid threshold profile")
		assert.Equal(t, base, th)
	})
}

func TestLoadThresholdProfileMissingFile(t *testing.T) {
	_, err := LoadThresholdProfile(filepath.Join(t.TempDir(), "nope.yaml"), fairness.DefaultThresholds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read threshold profile")
}

func TestThresholdSource(t *testing.T) {
	base := fairness.DefaultThresholds()
	src := NewThresholdSource(base)
	assert.Equal(t, base, src.Current())
	assert.Equal(t, uint64(0), src.Version())

	next := base
	next.DemographicParityDifference = 0.15
	require.NoError(t, src.Replace(next))
	assert.Equal(t, 0.15, src.Current().DemographicParityDifference)
	assert.Equal(t, uint64(1), src.Version())

	bad := base
	bad.Bands.Critical = 1
	assert.Error(t, src.Replace(bad))
	assert.Equal(t, 0.15, src.Current().DemographicParityDifference)
	assert.Equal(t, uint64(1), src.Version())
}

func TestThresholdSourceConcurrentReaders(t *testing.T) {
	src := NewThresholdSource(fairness.DefaultThresholds())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				th := src.Current()
				assert.NoError(t, th.Validate())
			}
		}()
	}
	for j := 0; j < 20; j++ {
		th := fairness.DefaultThresholds()
		th.AverageOddsDifference = float64(j%10) / 100
		require.NoError(t, src.Replace(th))
	}
	wg.Wait()
}

func TestNewProfileWatcherValidation(t *testing.T) {
	src := NewThresholdSource(fairness.DefaultThresholds())

	_, err := NewProfileWatcher("", fairness.DefaultThresholds(), src, 0, nil)
	assert.Error(t, err)

	_, err = NewProfileWatcher("/tmp/x.yaml", fairness.DefaultThresholds(), nil, 0, nil)
	assert.Error(t, err)

	pw, err := NewProfileWatcher("/tmp/x.yaml", fairness.DefaultThresholds(), src, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, pw.debounceDelay)
	assert.False(t, pw.IsRunning())
}

func TestProfileWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, "demographicParityDifference: 0.12\n")
	src := NewThresholdSource(fairness.DefaultThresholds())

	pw, err := NewProfileWatcher(path, fairness.DefaultThresholds(), src, 10*time.Millisecond, errors.NewNopLogger())
	require.NoError(t, err)

	var seen []error
	pw.OnReload(func(err error) { seen = append(seen, err) })

	require.NoError(t, pw.Reload())
	assert.Equal(t, 0.12, src.Current().DemographicParityDifference)

	writeProfile(t, dir, "demographicParityDifference: 2\n")
	assert.Error(t, pw.Reload())
	assert.Equal(t, 0.12, src.Current().DemographicParityDifference, "rejected profile keeps the previous policy")

	require.Len(t, seen, 2)
	assert.NoError(t, seen[0])
	assert.Error(t, seen[1])
}

func TestProfileWatcherPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, "averageOddsDifference: 0.1\n")
	src := NewThresholdSource(fairness.DefaultThresholds())

	pw, err := NewProfileWatcher(path, fairness.DefaultThresholds(), src, 10*time.Millisecond, errors.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, pw.Start())
	t.Cleanup(func() { _ = pw.Stop() })
	assert.True(t, pw.IsRunning())

	// step past the recorded modification time
	time.Sleep(20 * time.Millisecond)
	later := time.Now().Add(time.Second)
	writeProfile(t, dir, "averageOddsDifference: 0.07\n")
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Eventually(t, func() bool {
		return src.Current().AverageOddsDifference == 0.07
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, pw.Stop())
	assert.False(t, pw.IsRunning())
	assert.NoError(t, pw.Stop())
}
