package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jwren/castellan/internal/dependencies/mocks"
)

type ThrottleSuite struct {
	suite.Suite
	clock *mocks.MockClock
}

func TestThrottleSuite(t *testing.T) {
	suite.Run(t, new(ThrottleSuite))
}

func (s *ThrottleSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (s *ThrottleSuite) TestFirstCallPasses() {
	throttle := NewThrottle(s.clock, time.Minute)
	s.True(throttle.Allow())
}

func (s *ThrottleSuite) TestSuppressesWithinInterval() {
	throttle := NewThrottle(s.clock, time.Minute)

	s.True(throttle.Allow())
	s.False(throttle.Allow())

	s.clock.Advance(59 * time.Second)
	s.False(throttle.Allow())

	s.clock.Advance(time.Second)
	s.True(throttle.Allow())
	s.False(throttle.Allow())
}

func (s *ThrottleSuite) TestResetReopensImmediately() {
	throttle := NewThrottle(s.clock, time.Minute)

	s.True(throttle.Allow())
	s.False(throttle.Allow())

	throttle.Reset()
	s.True(throttle.Allow())
}

func (s *ThrottleSuite) TestZeroIntervalUsesDefault() {
	throttle := NewThrottle(s.clock, 0)

	s.True(throttle.Allow())
	s.clock.Advance(30 * time.Second)
	s.False(throttle.Allow())
	s.clock.Advance(30 * time.Second)
	s.True(throttle.Allow())
}
