// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceshield/internal/filter"
	"voiceshield/internal/pcm"
)

type plainFilter struct{}

func (plainFilter) Name() string       { return "plain" }
func (plainFilter) Enabled() bool      { return true }
func (plainFilter) Process(pcm.Frames) {}

func newSurface(t *testing.T) (*Surface, *filter.Chain) {
	t.Helper()
	chain := filter.NewDefaultChain()
	return New(chain), chain
}

func findState(t *testing.T, states []FilterState, name string) FilterState {
	t.Helper()
	for _, s := range states {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("filter %q not in state", name)
	return FilterState{}
}

func paramValue(t *testing.T, st FilterState, param string) float64 {
	t.Helper()
	for _, p := range st.Params {
		if p.Name == param {
			return p.Value
		}
	}
	t.Fatalf("param %q not in %s", param, st.Name)
	return 0
}

func TestStateListsChainInOrder(t *testing.T) {
	s, _ := newSurface(t)
	states := s.State()

	require.Len(t, states, 6)
	want := []string{
		filter.NameObfuscator, filter.NameNoise, filter.NameFormant,
		filter.NameWarp, filter.NamePhase, filter.NameComb,
	}
	for i, name := range want {
		assert.Equal(t, name, states[i].Name)
		assert.True(t, states[i].Enabled)
	}

	comb := findState(t, states, filter.NameComb)
	require.Len(t, comb.Params, 2)
	assert.Equal(t, ParamState{Name: "hole_width", Kind: "int", Value: 16, Min: 1, Max: 128}, comb.Params[0])
	assert.Equal(t, "float", comb.Params[1].Kind)
	assert.InDelta(t, 0.3, comb.Params[1].Value, 1e-12)
}

func TestSetEnabledAndToggle(t *testing.T) {
	s, chain := newSurface(t)

	require.NoError(t, s.SetEnabled(filter.NameNoise, false))
	f, _ := chain.Lookup(filter.NameNoise)
	assert.False(t, f.Enabled())

	require.NoError(t, s.Toggle(filter.NameNoise))
	assert.True(t, f.Enabled())

	assert.ErrorIs(t, s.SetEnabled("reverb", true), ErrUnknownFilter)
	assert.ErrorIs(t, s.Toggle("reverb"), ErrUnknownFilter)
}

func TestSetParam(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		param   string
		value   float64
		wantErr error
	}{
		{"step", filter.NameObfuscator, "step", 8, nil},
		{"xor max", filter.NameObfuscator, "xor_value", 0xFFFF, nil},
		{"xor too large", filter.NameObfuscator, "xor_value", 0x10000, filter.ErrOutOfRange},
		{"fractional step", filter.NameObfuscator, "step", 2.5, filter.ErrOutOfRange},
		{"amplitude", filter.NameNoise, "amplitude", 2000, nil},
		{"negative formant", filter.NameFormant, "amount", -12, nil},
		{"warp too large", filter.NameWarp, "warp_amount", 1.01, filter.ErrOutOfRange},
		{"intensity", filter.NamePhase, "intensity", 0.5, nil},
		{"depth", filter.NameComb, "depth", 1, nil},
		{"unknown param", filter.NameComb, "width", 3, ErrUnknownParam},
		{"unknown filter", "chorus", "depth", 3, ErrUnknownFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSurface(t)
			before := s.State()

			err := s.SetParam(tt.filter, tt.param, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, s.State(), "rejected write must not change state")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, paramValue(t, findState(t, s.State(), tt.filter), tt.param))
		})
	}
}

func TestUntunableFilterRejected(t *testing.T) {
	s := New(filter.NewChain(plainFilter{}))

	states := s.State()
	require.Len(t, states, 1)
	assert.Empty(t, states[0].Params)
	assert.ErrorIs(t, s.SetEnabled("plain", false), ErrUnknownFilter)
}

func TestSubscribersSeeAcceptedChangesOnly(t *testing.T) {
	s, _ := newSurface(t)

	var got [][]FilterState
	cancel := s.Subscribe(func(st []FilterState) { got = append(got, st) })

	require.NoError(t, s.SetParam(filter.NameNoise, "amplitude", 50))
	require.Error(t, s.SetParam(filter.NameNoise, "amplitude", 5000))
	require.NoError(t, s.SetEnabled(filter.NameWarp, false))

	require.Len(t, got, 2)
	assert.Equal(t, 50.0, paramValue(t, findState(t, got[0], filter.NameNoise), "amplitude"))
	assert.False(t, findState(t, got[1], filter.NameWarp).Enabled)

	cancel()
	require.NoError(t, s.SetEnabled(filter.NameWarp, true))
	assert.Len(t, got, 2)
}

func TestApply(t *testing.T) {
	off := false
	fifty := 50.0

	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"enable only", Command{Filter: filter.NameNoise, Enabled: &off}, nil},
		{"param only", Command{Filter: filter.NameNoise, Param: "amplitude", Value: &fifty}, nil},
		{"both", Command{Filter: filter.NameNoise, Enabled: &off, Param: "amplitude", Value: &fifty}, nil},
		{"no filter", Command{Enabled: &off}, ErrInvalidCommand},
		{"nothing to do", Command{Filter: filter.NameNoise}, ErrInvalidCommand},
		{"param without value", Command{Filter: filter.NameNoise, Param: "amplitude"}, ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSurface(t)
			err := s.Apply(tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApplyRejectedCommandChangesNothing(t *testing.T) {
	off := false
	tooLoud := 99999.0
	fraction := 2.5

	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"out of range", Command{Filter: filter.NameNoise, Enabled: &off, Param: "amplitude", Value: &tooLoud}, filter.ErrOutOfRange},
		{"fractional int", Command{Filter: filter.NameNoise, Enabled: &off, Param: "amplitude", Value: &fraction}, filter.ErrOutOfRange},
		{"unknown param", Command{Filter: filter.NameNoise, Enabled: &off, Param: "volume", Value: &fraction}, ErrUnknownParam},
		{"unknown filter", Command{Filter: "reverb", Enabled: &off}, ErrUnknownFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, chain := newSurface(t)
			notified := 0
			s.Subscribe(func([]FilterState) { notified++ })
			noise, _ := chain.Lookup(filter.NameNoise)

			err := s.Apply(tt.cmd)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, noise.Enabled(), "enabled flag must not change")
			assert.Equal(t, filter.DefaultAmplitude, noise.(*filter.NoiseInjector).Amplitude())
			assert.Zero(t, notified)
		})
	}
}

func TestApplyNotifiesOncePerCommand(t *testing.T) {
	s, chain := newSurface(t)
	var got []FilterState
	notified := 0
	s.Subscribe(func(st []FilterState) {
		notified++
		got = st
	})

	off := false
	fifty := 50.0
	require.NoError(t, s.Apply(Command{Filter: filter.NameNoise, Enabled: &off, Param: "amplitude", Value: &fifty}))

	assert.Equal(t, 1, notified)
	st := findState(t, got, filter.NameNoise)
	assert.False(t, st.Enabled)
	assert.Equal(t, 50.0, paramValue(t, st, "amplitude"))
	noise, _ := chain.Lookup(filter.NameNoise)
	assert.False(t, noise.Enabled())
}

func TestHandle(t *testing.T) {
	s, chain := newSurface(t)

	reply := s.Handle("c1", []byte(`{"filter":"comb","param":"hole_width","value":8}`))
	assert.Nil(t, reply)
	comb, _ := chain.Lookup(filter.NameComb)
	assert.Equal(t, 8, comb.(*filter.SpectralHoleComb).HoleWidth())

	reply = s.Handle("c1", []byte(`{"filter":"comb","param":"hole_width","value":500}`))
	msg, ok := reply.(Message)
	require.True(t, ok)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "c1", msg.Client)
	assert.Contains(t, msg.Error, "out of range")

	reply = s.Handle("c1", []byte(`{not json`))
	msg = reply.(Message)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Error, "malformed command")
}

func TestWelcomeCarriesClientAndState(t *testing.T) {
	s, _ := newSurface(t)

	data, err := json.Marshal(s.Welcome("abc"))
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeState, msg.Type)
	assert.Equal(t, "abc", msg.Client)
	assert.Len(t, msg.Filters, 6)
}

func TestConcurrentWritesWhileProcessing(t *testing.T) {
	s, chain := newSurface(t)
	frames := pcm.NewFrames(1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 500 {
			_ = s.SetParam(filter.NameComb, "hole_width", float64(1+i%128))
			_ = s.SetParam(filter.NameObfuscator, "step", float64(1+i%32))
			_ = s.Toggle(filter.NamePhase)
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			assert.NoError(t, chain.Process(frames))
		}
	}()
	wg.Wait()

	for _, name := range []string{filter.NameComb, filter.NameObfuscator} {
		assert.False(t, chain.Faulted(name))
	}
}
