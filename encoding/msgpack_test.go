package encoding

import (
	"sync"
	"testing"

	"github.com/blurt-dev/blurt/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Notification(t *testing.T) {
	app := "com.example.mail"
	n := common.Notification{
		ID:       7,
		Title:    "Inbox",
		Body:     "3 new messages",
		Date:     1700000000,
		BundleID: &app,
	}

	data, err := Marshal(&n)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var decoded map[string]interface{}
	require.NoError(t, Unmarshal(data, &decoded))

	assert.Equal(t, "Inbox", decoded["title"])
	assert.Equal(t, "3 new messages", decoded["body"])
	assert.Equal(t, "com.example.mail", decoded["bundle_id"])
	assert.Nil(t, decoded["subtitle"])
	assert.Contains(t, decoded, "subtitle")
}

func TestUnmarshal_IntoStruct(t *testing.T) {
	sub := "Re: lunch"
	in := common.Notification{ID: 42, Title: "Messages", Subtitle: &sub}

	data, err := Marshal(&in)
	require.NoError(t, err)

	var out common.Notification
	require.NoError(t, Unmarshal(data, &out))

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Title, out.Title)
	require.NotNil(t, out.Subtitle)
	assert.Equal(t, sub, *out.Subtitle)
	assert.Nil(t, out.BundleID)
}

func TestUnmarshal_LooseStrings(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)

	var out interface{}
	require.NoError(t, Unmarshal(data, &out))

	m, ok := out.(map[string]interface{})
	require.True(t, ok)
	_, isString := m["name"].(string)
	assert.True(t, isString, "strings should decode as Go strings")
}

func TestMarshal_Concurrent(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n := common.Notification{ID: int64(id*1000 + j), Title: "t"}
				data, err := Marshal(&n)
				if err != nil {
					t.Errorf("Marshal failed: %v", err)
					return
				}
				var out common.Notification
				if err := Unmarshal(data, &out); err != nil {
					t.Errorf("Unmarshal failed: %v", err)
					return
				}
				if out.ID != n.ID {
					t.Errorf("expected id %d, got %d", n.ID, out.ID)
					return
				}
			}
		}(i)
	}

	wg.Wait()
}

func TestNotificationRoundTrip(t *testing.T) {
	app := "com.apple.mail"
	in := common.Notification{ID: 9, Title: "Mail", Body: "hi", Date: -3, BundleID: &app}

	data, err := MarshalNotification(in)
	require.NoError(t, err)

	out, err := UnmarshalNotification(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Date, out.Date)
	require.NotNil(t, out.BundleID)
	assert.Equal(t, app, *out.BundleID)
}

func TestMarshal_ResultNotShared(t *testing.T) {
	first, err := Marshal(map[string]interface{}{"a": "one"})
	require.NoError(t, err)
	snapshot := append([]byte(nil), first...)

	_, err = Marshal(map[string]interface{}{"b": "two"})
	require.NoError(t, err)

	assert.Equal(t, snapshot, first, "pooled buffer must not alias returned bytes")
}

func TestUnmarshalNotification_Garbage(t *testing.T) {
	_, err := UnmarshalNotification([]byte{0xc1})
	assert.Error(t, err)
}
