package engine

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/m17n"
)

func TestOpenInvalidIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lib := newFakeLibrary(testEngine)
	m := NewManager(NewRegistry(lib), NewMockHost(ctrl), nil, discard)

	s, err := m.Open("m17n:si")
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))
	assert.Empty(t, lib.opens)
	assert.Empty(t, m.Sessions())
}

func TestOpenMethodUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: any sink call fails the test.
	host := NewMockHost(ctrl)
	lib := newFakeLibrary(testEngine)
	m := NewManager(NewRegistry(lib), host, nil, discard)

	_, err := m.Open("m17n:xx:missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMethodUnavailable))

	// Permanent: the library is not asked again.
	_, err = m.Open("m17n:xx:missing")
	assert.True(t, errors.Is(err, ErrMethodUnavailable))
	assert.Equal(t, 1, lib.opens[EngineVariant{Language: "xx", Method: "missing"}])
	assert.Empty(t, m.Sessions())
}

func TestOpenContextFailureLeavesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := NewMockHost(ctrl)
	lib := newFakeLibrary(testEngine)
	method := lib.method(testEngine)
	method.createErr = m17n.ErrContext
	method.setup = func(c *fakeContext) {
		c.preedit = m17n.TextOf("a")
		c.emit(m17n.PreeditDraw)
	}
	m := NewManager(NewRegistry(lib), host, nil, discard)

	_, err := m.Open(testEngine)
	assert.True(t, errors.Is(err, ErrMethodUnavailable))
	assert.Empty(t, m.Sessions())
	assert.Equal(t, 0, m.dispatcher.Bound())
	assert.Empty(t, m.dispatcher.pending)
	assert.Equal(t, 0, method.closed)
}

func TestMethodSharedAcrossSessions(t *testing.T) {
	lib := newFakeLibrary(testEngine, "m17n:hi:inscript")
	resolved := 0
	m := NewManager(NewRegistry(lib), &recordingHost{}, func(EngineVariant) config.Settings {
		resolved++
		return config.DefaultSettings(false)
	}, discard)

	s1, err := m.Open(testEngine)
	require.NoError(t, err)
	s2, err := m.Open(testEngine)
	require.NoError(t, err)
	_, err = m.Open("m17n:hi:inscript")
	require.NoError(t, err)

	method := lib.method(testEngine)
	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.Equal(t, 1, lib.opens[s1.Variant()])
	assert.Equal(t, len(m17n.Commands), method.sets)
	assert.Len(t, method.contexts, 2)
	assert.Equal(t, 2, resolved)
	assert.Len(t, m.Sessions(), 3)
}

func TestCallbacksDuringCreateAreReplayed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := NewMockHost(ctrl)
	host.EXPECT().UpdateStatusProperty(gomock.Any(), "අ", true).Times(1)

	lib := newFakeLibrary(testEngine)
	lib.method(testEngine).setup = func(c *fakeContext) {
		c.status = m17n.TextOf("අ")
		c.emit(m17n.StatusDraw)
	}
	m := NewManager(NewRegistry(lib), host, nil, discard)

	s, err := m.Open(testEngine)
	require.NoError(t, err)
	assert.Equal(t, StatusState{Text: "අ", Visible: true}, s.RenderState().Status)
	assert.Equal(t, "අ", s.Properties()[0].Label)
}

func TestCloseKeepsMethod(t *testing.T) {
	lib := newFakeLibrary(testEngine)
	m := NewManager(NewRegistry(lib), &recordingHost{}, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)
	ctx := s.ctx.(*fakeContext)

	m.Close(s)
	m.Close(s)
	assert.Equal(t, 1, ctx.destroyed)
	assert.Equal(t, 0, lib.method(testEngine).closed)
	assert.Equal(t, 0, m.dispatcher.Bound())
	_, ok := m.Session(s.ID())
	assert.False(t, ok)

	// The cached method serves the next session.
	_, err = m.Open(testEngine)
	require.NoError(t, err)
	assert.Equal(t, 1, lib.opens[s.Variant()])
}

func TestShutdown(t *testing.T) {
	lib := newFakeLibrary(testEngine, "m17n:hi:inscript")
	m := NewManager(NewRegistry(lib), &recordingHost{}, nil, discard)
	s1, err := m.Open(testEngine)
	require.NoError(t, err)
	s2, err := m.Open("m17n:hi:inscript")
	require.NoError(t, err)

	m.Shutdown()
	assert.True(t, s1.Closed())
	assert.True(t, s2.Closed())
	assert.Equal(t, 1, lib.method(testEngine).closed)
	assert.Equal(t, 1, lib.method("m17n:hi:inscript").closed)
	assert.Equal(t, 1, lib.method(testEngine).contexts[0].destroyed)
}

func TestUnderlineChangeRerendersPreeditOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := NewMockHost(ctrl)
	lib := newFakeLibrary(testEngine)
	lib.method(testEngine).setup = func(c *fakeContext) {
		c.preedit = m17n.TextOf("ක")
		c.cursor = 1
	}
	m := NewManager(NewRegistry(lib), host, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)

	host.EXPECT().UpdatePreedit(s, "ක", []Attribute{{Type: AttrUnderline, Value: uint32(config.UnderlineSingle), Start: 0, End: 1}}, 1, true).Times(1)

	m.ApplyChange(config.Change{Section: "engine/M17N/si/wijesekera", Key: config.KeyPreeditUnderline, Value: "1"})
	assert.Equal(t, config.UnderlineSingle, s.Settings().Underline)
}

func TestApplyChangeIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := NewMockHost(ctrl)
	m := NewManager(NewRegistry(newFakeLibrary(testEngine)), host, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)

	m.ApplyChange(config.Change{Section: "engine/M17N/si/wijesekera", Key: config.KeyPreeditUnderline, Value: "9"})
	m.ApplyChange(config.Change{Section: "engine/M17N/si/wijesekera", Key: "unknown", Value: "1"})
	m.ApplyChange(config.Change{Section: "engine/M17N/hi/inscript", Key: config.KeyPreeditUnderline, Value: "1"})
	assert.Equal(t, config.DefaultSettings(false), s.Settings())
}

func TestApplyChangeDeletedResolvesAgain(t *testing.T) {
	lib := newFakeLibrary(testEngine)
	highlight := false
	m := NewManager(NewRegistry(lib), &recordingHost{}, func(EngineVariant) config.Settings {
		return config.DefaultSettings(highlight)
	}, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)

	m.ApplyChange(config.Change{Section: s.Variant().ConfigSection(), Key: config.KeyPreeditForeground, Value: "#ff0000"})
	assert.Equal(t, config.Color(0xff0000), s.Settings().Foreground)

	highlight = true
	m.ApplyChange(config.Change{Section: s.Variant().ConfigSection(), Key: config.KeyPreeditForeground, Deleted: true})
	assert.Equal(t, config.DefaultSettings(true), s.Settings())
}

func TestOrientationChangeRerendersVisibleCandidates(t *testing.T) {
	lib := newFakeLibrary(testEngine)
	host := &recordingHost{}
	m := NewManager(NewRegistry(lib), host, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)
	ctx := s.ctx.(*fakeContext)
	section := s.Variant().ConfigSection()

	ctx.cands = blocks("ab")
	ctx.show = true
	ctx.emit(m17n.CandidatesDraw)
	require.Len(t, host.pages, 1)
	assert.Equal(t, config.OrientationSystem, host.pages[0].Orientation)

	m.ApplyChange(config.Change{Section: section, Key: config.KeyLookupTableOrientation, Value: "1"})
	require.Len(t, host.pages, 2)
	assert.Equal(t, config.OrientationVertical, host.pages[1].Orientation)

	ctx.emit(m17n.CandidatesDone)
	m.ApplyChange(config.Change{Section: section, Key: config.KeyLookupTableOrientation, Value: "0"})
	assert.Len(t, host.pages, 2)
	assert.Equal(t, config.OrientationHorizontal, s.Settings().Orientation)
}

func TestReload(t *testing.T) {
	lib := newFakeLibrary(testEngine)
	host := &recordingHost{}
	highlight := false
	m := NewManager(NewRegistry(lib), host, func(EngineVariant) config.Settings {
		return config.DefaultSettings(highlight)
	}, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)

	highlight = true
	m.Reload()
	assert.Equal(t, config.DefaultSettings(true), s.Settings())
	assert.Equal(t, []string{"preedit"}, host.events)
}
