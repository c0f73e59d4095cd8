package model

import "time"

// Profile is a contact record, usually created from a scanned business card.
// GiftCount and LastGiftDate are a projection of the gift history maintained
// by the storage facade; callers never set them directly.
type Profile struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Title        string            `json:"title,omitempty"`
	Company      string            `json:"company,omitempty"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Website      string            `json:"website,omitempty"`
	SocialMedia  map[string]string `json:"socialMedia,omitempty"` // platform -> handle
	Industry     string            `json:"industry,omitempty"`
	Relationship Relationship      `json:"relationship,omitempty"`
	Occasions    []string          `json:"occasions,omitempty"`
	BudgetRange  BudgetRange       `json:"budgetRange,omitempty"`
	Interests    []string          `json:"interests,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Image        string            `json:"image,omitempty"`  // data URI
	Source       string            `json:"source,omitempty"` // how the record was created, e.g. "ocr-local"
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	GiftCount    int               `json:"giftCount"`
	LastGiftDate *time.Time        `json:"lastGiftDate"`
}

// ProfileFields holds the caller-supplied attributes of a new profile.
type ProfileFields struct {
	Name         string            `json:"name"`
	Title        string            `json:"title,omitempty"`
	Company      string            `json:"company,omitempty"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Website      string            `json:"website,omitempty"`
	SocialMedia  map[string]string `json:"socialMedia,omitempty"`
	Industry     string            `json:"industry,omitempty"`
	Relationship Relationship      `json:"relationship,omitempty"`
	Occasions    []string          `json:"occasions,omitempty"`
	BudgetRange  BudgetRange       `json:"budgetRange,omitempty"`
	Interests    []string          `json:"interests,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Image        string            `json:"image,omitempty"`
	Source       string            `json:"source,omitempty"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name         *string            `json:"name,omitempty"`
	Title        *string            `json:"title,omitempty"`
	Company      *string            `json:"company,omitempty"`
	Email        *string            `json:"email,omitempty"`
	Phone        *string            `json:"phone,omitempty"`
	Website      *string            `json:"website,omitempty"`
	SocialMedia  *map[string]string `json:"socialMedia,omitempty"`
	Industry     *string            `json:"industry,omitempty"`
	Relationship *Relationship      `json:"relationship,omitempty"`
	Occasions    *[]string          `json:"occasions,omitempty"`
	BudgetRange  *BudgetRange       `json:"budgetRange,omitempty"`
	Interests    *[]string          `json:"interests,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	Image        *string            `json:"image,omitempty"`
	Source       *string            `json:"source,omitempty"`
}

// NewProfile builds a profile from caller fields. Identity, timestamps and
// counters are left for the facade to stamp.
func NewProfile(f ProfileFields) Profile {
	return Profile{
		Name:         f.Name,
		Title:        f.Title,
		Company:      f.Company,
		Email:        f.Email,
		Phone:        f.Phone,
		Website:      f.Website,
		SocialMedia:  f.SocialMedia,
		Industry:     f.Industry,
		Relationship: f.Relationship,
		Occasions:    f.Occasions,
		BudgetRange:  f.BudgetRange,
		Interests:    f.Interests,
		Notes:        f.Notes,
		Image:        f.Image,
		Source:       f.Source,
	}
}

// Apply merges the non-nil fields of patch onto p (shallow, per field).
func (patch ProfilePatch) Apply(p *Profile) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Website != nil {
		p.Website = *patch.Website
	}
	if patch.SocialMedia != nil {
		p.SocialMedia = *patch.SocialMedia
	}
	if patch.Industry != nil {
		p.Industry = *patch.Industry
	}
	if patch.Relationship != nil {
		p.Relationship = *patch.Relationship
	}
	if patch.Occasions != nil {
		p.Occasions = *patch.Occasions
	}
	if patch.BudgetRange != nil {
		p.BudgetRange = *patch.BudgetRange
	}
	if patch.Interests != nil {
		p.Interests = *patch.Interests
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Source != nil {
		p.Source = *patch.Source
	}
}

// GiftStatus is the state of a gift-history entry.
type GiftStatus string

const (
	GiftStatusGiven   GiftStatus = "given"
	GiftStatusPlanned GiftStatus = "planned"
)

// GiftEntry records one gift attributed to a profile. ProfileID is a weak
// reference: the profile may have been deleted since.
type GiftEntry struct {
	ID        string     `json:"id"`
	ProfileID string     `json:"profileId,omitempty"`
	GiftName  string     `json:"giftName"`
	Occasion  string     `json:"occasion,omitempty"`
	Price     float64    `json:"price,omitempty"`
	Status    GiftStatus `json:"status"`
	Notes     string     `json:"notes,omitempty"`
	GivenAt   time.Time  `json:"givenAt"`
}

// GiftFields holds the caller-supplied attributes of a new gift entry.
type GiftFields struct {
	ProfileID string  `json:"profileId,omitempty"`
	GiftName  string  `json:"giftName"`
	Occasion  string  `json:"occasion,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Theme is the UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings is the single application settings record.
type Settings struct {
	Version             string    `json:"version,omitempty"`
	CreatedAt           time.Time `json:"createdAt,omitzero"`
	Theme               Theme     `json:"theme,omitempty"`
	EnableNotifications bool      `json:"enableNotifications"`
	AutoBackup          bool      `json:"autoBackup"`
	DataRetention       int       `json:"dataRetention,omitempty"` // days
	GeminiAPIKey        string    `json:"geminiApiKey,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitzero"`
}

// IsEmpty reports whether s carries no settings at all, which callers treat
// the same as a missing record.
func (s Settings) IsEmpty() bool {
	return s.Version == "" &&
		s.CreatedAt.IsZero() &&
		s.Theme == "" &&
		!s.EnableNotifications &&
		!s.AutoBackup &&
		s.DataRetention == 0 &&
		s.GeminiAPIKey == "" &&
		s.UpdatedAt.IsZero()
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	Theme               *Theme  `json:"theme,omitempty"`
	EnableNotifications *bool   `json:"enableNotifications,omitempty"`
	AutoBackup          *bool   `json:"autoBackup,omitempty"`
	DataRetention       *int    `json:"dataRetention,omitempty"`
	GeminiAPIKey        *string `json:"geminiApiKey,omitempty"`
}

// Apply merges the non-nil fields of patch onto s.
func (patch SettingsPatch) Apply(s *Settings) {
	if patch.Theme != nil {
		s.Theme = *patch.Theme
	}
	if patch.EnableNotifications != nil {
		s.EnableNotifications = *patch.EnableNotifications
	}
	if patch.AutoBackup != nil {
		s.AutoBackup = *patch.AutoBackup
	}
	if patch.DataRetention != nil {
		s.DataRetention = *patch.DataRetention
	}
	if patch.GeminiAPIKey != nil {
		s.GeminiAPIKey = *patch.GeminiAPIKey
	}
}
