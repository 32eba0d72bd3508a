package utils

import (
	"testing"
	"time"
)

func TestUserToday_LocalDateAhead(t *testing.T) {
	// 18:30 UTC is already 01:30 the next day in Ho Chi Minh (UTC+7).
	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

	got := UserToday("Asia/Ho_Chi_Minh", now)
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("UserToday() = %v, want %v", got, want)
	}
}

func TestUserToday_UTC(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
	got := UserToday("UTC", now)
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("UserToday() = %v, want %v", got, want)
	}
}

func TestUserToday_UnknownZoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
	got := UserToday("Not/AZone", now)
	want := UserToday("UTC", now)
	if !got.Equal(want) {
		t.Errorf("UserToday(unknown zone) = %v, want UTC date %v", got, want)
	}
	if got := UserToday("", now); !got.Equal(want) {
		t.Errorf("UserToday(empty zone) = %v, want %v", got, want)
	}
}

func TestUserWeekStart(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			// Wednesday → previous Monday
			name: "midweek",
			now:  time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// Monday maps to itself
			name: "monday",
			now:  time.Date(2025, 3, 10, 0, 0, 1, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// Sunday still belongs to the week that started the previous Monday
			name: "sunday",
			now:  time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserWeekStart("UTC", tt.now); !got.Equal(tt.want) {
				t.Errorf("UserWeekStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserWeekStart_TimezoneCrossesWeekBoundary(t *testing.T) {
	// Sunday 18:30 UTC is Monday 01:30 in Ho Chi Minh — a new week there.
	now := time.Date(2025, 3, 16, 18, 30, 0, 0, time.UTC)

	gotLocal := UserWeekStart("Asia/Ho_Chi_Minh", now)
	wantLocal := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	if !gotLocal.Equal(wantLocal) {
		t.Errorf("UserWeekStart(VN) = %v, want %v", gotLocal, wantLocal)
	}

	gotUTC := UserWeekStart("UTC", now)
	wantUTC := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !gotUTC.Equal(wantUTC) {
		t.Errorf("UserWeekStart(UTC) = %v, want %v", gotUTC, wantUTC)
	}
}

func TestSecondsUntilDailyReset(t *testing.T) {
	// 23:00 UTC → one hour to midnight.
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	if got := SecondsUntilDailyReset("UTC", now); got != 3600 {
		t.Errorf("SecondsUntilDailyReset() = %d, want 3600", got)
	}
}

func TestSecondsUntilWeeklyReset(t *testing.T) {
	// Sunday 23:00 UTC → one hour to Monday midnight.
	now := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	if got := SecondsUntilWeeklyReset("UTC", now); got != 3600 {
		t.Errorf("SecondsUntilWeeklyReset() = %d, want 3600", got)
	}

	// Monday noon → six and a half days.
	monday := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	want := int64((6*24 + 12) * 3600)
	if got := SecondsUntilWeeklyReset("UTC", monday); got != want {
		t.Errorf("SecondsUntilWeeklyReset(monday) = %d, want %d", got, want)
	}
}
