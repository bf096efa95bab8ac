package metrics

import (
	"testing"
	"time"
)

func TestFiscalYearQuarter(t *testing.T) {
	tests := []struct {
		name        string
		serviceDate time.Time
		wantYear    int
		wantQuarter int
	}{
		{
			name:        "october starts the next fiscal year",
			serviceDate: time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
			wantYear:    2024,
			wantQuarter: 1,
		},
		{
			name:        "december is still first quarter",
			serviceDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			wantYear:    2024,
			wantQuarter: 1,
		},
		{
			name:        "january is second quarter",
			serviceDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantYear:    2024,
			wantQuarter: 2,
		},
		{
			name:        "june is third quarter",
			serviceDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			wantYear:    2024,
			wantQuarter: 3,
		},
		{
			name:        "september closes the fiscal year",
			serviceDate: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
			wantYear:    2024,
			wantQuarter: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotYear, gotQuarter := FiscalYearQuarter(tt.serviceDate)
			if gotYear != tt.wantYear || gotQuarter != tt.wantQuarter {
				t.Errorf("FiscalYearQuarter() = %d, %d, want %d, %d",
					gotYear, gotQuarter, tt.wantYear, tt.wantQuarter)
			}
		})
	}
}

func TestFormatYearQuarter(t *testing.T) {
	if got := FormatYearQuarter(2024, 3); got != "2024Q3" {
		t.Errorf("FormatYearQuarter() = %s, want 2024Q3", got)
	}
}

func TestQuarterEnd(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		quarter int
		want    time.Time
	}{
		{name: "q1 ends in the prior calendar year", year: 2024, quarter: 1,
			want: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{name: "q2 ends in march", year: 2024, quarter: 2,
			want: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{name: "q4 ends the fiscal year", year: 2024, quarter: 4,
			want: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuarterEnd(tt.year, tt.quarter); !got.Equal(tt.want) {
				t.Errorf("QuarterEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilingDeadline(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		quarter int
		want    time.Time
	}{
		{
			// 2022Q1 ends 2021-12-31; 30 days later is Sunday 2022-01-30
			name: "weekend rolls to monday", year: 2022, quarter: 1,
			want: time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			// 2022Q3 ends 2022-06-30; 30 days later is Saturday 2022-07-30
			name: "saturday rolls past the weekend", year: 2022, quarter: 3,
			want: time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// 2024Q4 ends 2024-09-30; 30 days later is Wednesday 2024-10-30
			name: "weekday stands", year: 2024, quarter: 4,
			want: time.Date(2024, 10, 30, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilingDeadline(tt.year, tt.quarter); !got.Equal(tt.want) {
				t.Errorf("FilingDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}
