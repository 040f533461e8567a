package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(time.Date(2025, 12, 2, 15, 4, 5, 0, time.FixedZone("WIB", 7*3600)))

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-12-02"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, d.Equal(back.Time))

	b, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	assert.Error(t, json.Unmarshal([]byte(`"02-12-2025"`), &back))
}

func TestDate_Scan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan("2025-01-01"))
	assert.Equal(t, "2025-01-01", d.String())

	require.NoError(t, d.Scan([]byte("1999-12-31")))
	assert.Equal(t, "1999-12-31", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)).Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleViewer, ParseRole(""))
	assert.Equal(t, RoleViewer, ParseRole("root"))

	assert.True(t, RoleAdmin.Allows(RoleEditor))
	assert.True(t, RoleEditor.Allows(RoleEditor))
	assert.False(t, RoleViewer.Allows(RoleEditor))
}

func TestSharedLink(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	maxViews := 2
	s := SharedLink{ExpiresAt: now.Add(time.Hour), MaxViews: &maxViews, ViewCount: 1}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Hour)))
	assert.False(t, s.Exhausted())

	s.ViewCount = 2
	assert.True(t, s.Exhausted())

	s.MaxViews = nil
	assert.False(t, s.Exhausted())
}
