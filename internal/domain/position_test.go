package domain

import (
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestPosition_Validate(t *testing.T) {
	cases := []struct {
		name string
		pos  Position
		ok   bool
	}{
		{"origin", Position{Lat: 0, Lng: 0}, true},
		{"bounds", Position{Lat: -90, Lng: 180, Accuracy: lo.ToPtr(12.5)}, true},
		{"lat too high", Position{Lat: 90.0001, Lng: 0}, false},
		{"lat too low", Position{Lat: -91, Lng: 0}, false},
		{"lng too high", Position{Lat: 0, Lng: 181}, false},
		{"lng too low", Position{Lat: 0, Lng: -180.5}, false},
		{"negative accuracy", Position{Lat: 1, Lng: 1, Accuracy: lo.ToPtr(-1.0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pos.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPosition)
		})
	}
}

func TestNormalizeNickname(t *testing.T) {
	req := require.New(t)

	got, err := NormalizeNickname("  Alice ")
	req.NoError(err)
	req.Equal("Alice", got)

	_, err = NormalizeNickname("   ")
	req.ErrorIs(err, ErrInvalidNickname)

	_, err = NormalizeNickname(strings.Repeat("é", MaxNicknameLength+1))
	req.ErrorIs(err, ErrInvalidNickname)

	got, err = NormalizeNickname(strings.Repeat("é", MaxNicknameLength))
	req.NoError(err)
	req.Len([]rune(got), MaxNicknameLength)
}

func TestParticipant_SummaryCopiesPosition(t *testing.T) {
	p := Participant{ID: "id-1", Nickname: "Bob", Position: &Position{Lat: 1, Lng: 2}}

	s := p.Summary()
	p.Position.Lat = 50

	require.Equal(t, 1.0, s.Position.Lat)
}
