package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreLocation = cmpopts.IgnoreUnexported(Config{})

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: &Config{
				TelegramBotToken: "test-token",
				DatabasePath:     "./data/noticeboard.db",
				LogLevel:         "info",
				AdminUsers:       nil,
				Timezone:         "UTC",
				ImportInterval:   15 * time.Minute,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":      "tok",
				"DATABASE_PATH":           "/tmp/board.db",
				"LOG_LEVEL":               "debug",
				"ADMIN_USERS":             "111,222,333",
				"TIMEZONE":                "Asia/Kolkata",
				"IMPORT_INTERVAL_MINUTES": "60",
			},
			want: &Config{
				TelegramBotToken: "tok",
				DatabasePath:     "/tmp/board.db",
				LogLevel:         "debug",
				AdminUsers:       []int64{111, 222, 333},
				Timezone:         "Asia/Kolkata",
				ImportInterval:   time.Hour,
			},
		},
		{
			name: "admin users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ADMIN_USERS":        " 10 , 20 , ",
			},
			want: &Config{
				TelegramBotToken: "tok",
				DatabasePath:     "./data/noticeboard.db",
				LogLevel:         "info",
				AdminUsers:       []int64{10, 20},
				Timezone:         "UTC",
				ImportInterval:   15 * time.Minute,
			},
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ADMIN_USERS":        "123,abc",
			},
			wantErr: true,
		},
		{
			name: "unknown timezone",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"TIMEZONE":           "Mars/Olympus",
			},
			wantErr: true,
		},
		{
			name: "interval out of range",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":      "tok",
				"IMPORT_INTERVAL_MINUTES": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear relevant env vars
			for _, key := range []string{"TELEGRAM_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL", "ADMIN_USERS", "TIMEZONE", "IMPORT_INTERVAL_MINUTES"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, ignoreLocation); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want.Timezone, got.Location().String()); diff != "" {
				t.Errorf("Location() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name       string
		adminUsers []int64
		userID     int64
		want       bool
	}{
		{
			name:       "empty list grants nobody",
			adminUsers: nil,
			userID:     42,
			want:       false,
		},
		{
			name:       "user in list",
			adminUsers: []int64{10, 20, 30},
			userID:     20,
			want:       true,
		},
		{
			name:       "user not in list",
			adminUsers: []int64{10, 20, 30},
			userID:     99,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AdminUsers: tt.adminUsers}
			got := cfg.IsAdmin(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsAdmin() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
