package service

import (
	"testing"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"
)

// mockSettingRepo 内存版设置仓库，保留 Upsert 写入的原始 JSON 供断言
type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	if value, ok := m.store[key]; ok {
		return &models.Setting{Key: key, ValueJSON: value}, nil
	}
	return nil, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return m.GetByKey(key)
}

func TestNormalizeSMTPSetting(t *testing.T) {
	t.Run("zero value falls back to port 587", func(t *testing.T) {
		if got := NormalizeSMTPSetting(SMTPSetting{}); got.Port != 587 {
			t.Fatalf("expected default port 587, got %d", got.Port)
		}
	})

	t.Run("trims fields and clamps out-of-range port", func(t *testing.T) {
		got := NormalizeSMTPSetting(SMTPSetting{
			Host: "  smtp.example.com  ",
			Port: 70000,
			From: " notify@example.com ",
		})
		if got.Host != "smtp.example.com" {
			t.Fatalf("expected host trimmed, got %q", got.Host)
		}
		if got.Port != 587 {
			t.Fatalf("expected out-of-range port reset to 587, got %d", got.Port)
		}
		if got.From != "notify@example.com" {
			t.Fatalf("expected from trimmed, got %q", got.From)
		}
	})
}

func TestValidateSMTPSetting(t *testing.T) {
	cases := []struct {
		name    string
		setting SMTPSetting
		wantErr bool
	}{
		{
			name: "tls and ssl conflict",
			setting: SMTPSetting{
				Enabled: true,
				Host:    "smtp.example.com",
				From:    "notify@example.com",
				UseTLS:  true,
				UseSSL:  true,
			},
			wantErr: true,
		},
		{
			name:    "enabled without host",
			setting: SMTPSetting{Enabled: true, From: "notify@example.com"},
			wantErr: true,
		},
		{
			name:    "from is not an address",
			setting: SMTPSetting{Enabled: true, Host: "smtp.example.com", From: "not-an-address"},
			wantErr: true,
		},
		{
			name:    "disabled config passes with gaps",
			setting: SMTPSetting{Enabled: false},
			wantErr: false,
		},
		{
			name: "complete config",
			setting: SMTPSetting{
				Enabled:  true,
				Host:     "smtp.example.com",
				Port:     587,
				From:     "notify@example.com",
				UseTLS:   true,
				Password: "secret",
			},
			wantErr: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSMTPSetting(NormalizeSMTPSetting(tc.setting))
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected setting to pass, got error: %v", err)
			}
		})
	}
}

func TestPatchSMTPSettingKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	seed := config.EmailConfig{
		Enabled:  true,
		Host:     "smtp.default.com",
		Port:     587,
		Username: "default-user",
		Password: "default-secret",
		From:     "default@example.com",
		FromName: "Default",
		UseTLS:   true,
	}

	// 管理端回显的密码是空串，提交回来不应抹掉真实密码
	updated, err := svc.PatchSMTPSetting(seed, SMTPSettingPatch{
		Host:     ptrString("smtp.custom.com"),
		Password: ptrString(""),
	})
	if err != nil {
		t.Fatalf("patch smtp setting failed: %v", err)
	}
	if updated.Host != "smtp.custom.com" {
		t.Fatalf("expected patched host smtp.custom.com, got %q", updated.Host)
	}
	if updated.Password != "default-secret" {
		t.Fatalf("expected password keep default-secret, got %q", updated.Password)
	}
	if updated.FromName != "Default" {
		t.Fatalf("expected untouched from_name preserved, got %q", updated.FromName)
	}

	saved, ok := repo.store[constants.SettingKeySMTPConfig]
	if !ok {
		t.Fatalf("smtp setting was not saved")
	}
	if saved["password"] != "default-secret" {
		t.Fatalf("expected saved password keep old value, got %v", saved["password"])
	}
}

func TestGetSMTPSettingPrefersStoredValue(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)
	seed := config.EmailConfig{Host: "smtp.default.com", Port: 465, From: "default@example.com"}

	fromDefaults, err := svc.GetSMTPSetting(seed)
	if err != nil {
		t.Fatalf("get smtp setting failed: %v", err)
	}
	if fromDefaults.Host != "smtp.default.com" || fromDefaults.Port != 465 {
		t.Fatalf("expected fallback to default config, got %+v", fromDefaults)
	}

	repo.store[constants.SettingKeySMTPConfig] = models.JSON{
		"enabled": true,
		"host":    "smtp.stored.com",
		"port":    float64(2525),
		"from":    "stored@example.com",
	}

	fromStore, err := svc.GetSMTPSetting(seed)
	if err != nil {
		t.Fatalf("get smtp setting failed: %v", err)
	}
	if fromStore.Host != "smtp.stored.com" {
		t.Fatalf("expected stored host win, got %q", fromStore.Host)
	}
	if fromStore.Port != 2525 {
		t.Fatalf("expected stored port 2525, got %d", fromStore.Port)
	}
	if !fromStore.Enabled {
		t.Fatalf("expected stored enabled true")
	}
}

func TestMaskSMTPSettingForAdmin(t *testing.T) {
	withSecret := MaskSMTPSettingForAdmin(SMTPSetting{
		Enabled:  true,
		Host:     "smtp.example.com",
		Password: "secret",
	})
	if withSecret["password"] != "" {
		t.Fatalf("expected masked password empty, got %v", withSecret["password"])
	}
	if withSecret["has_password"] != true {
		t.Fatalf("expected has_password true, got %v", withSecret["has_password"])
	}

	withoutSecret := MaskSMTPSettingForAdmin(SMTPSetting{Host: "smtp.example.com"})
	if withoutSecret["has_password"] != false {
		t.Fatalf("expected has_password false, got %v", withoutSecret["has_password"])
	}
}

func ptrString(value string) *string {
	return &value
}
