package bind

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	writes []string
}

func (r *recorder) SetHTML(markup string) { r.writes = append(r.writes, markup) }

func TestView_RendersMergedViewModel(t *testing.T) {
	page := NewModel(map[string]any{"id": 5})
	users := NewCollection()
	users.Reset([]map[string]any{{"id": 1}})

	var seen map[string]any
	tmpl := func(vm map[string]any) (string, error) {
		seen = vm
		return fmt.Sprintf("%v", vm["page"].(map[string]any)["id"]), nil
	}
	el := &recorder{}
	v := NewView("share", map[string]Source{"page": page, "users": users}, tmpl, el)

	got, err := v.Render()
	require.NoError(t, err)
	assert.Same(t, v, got)
	assert.Equal(t, []string{"5"}, el.writes)
	assert.Equal(t, map[string]any{"id": 5}, seen["page"])
	assert.Equal(t, []any{map[string]any{"id": 1}}, seen["users"])
}

func TestView_OneRenderPerEvent(t *testing.T) {
	page := NewModel(nil)
	users := NewCollection()
	el := &recorder{}
	renders := 0
	tmpl := func(vm map[string]any) (string, error) {
		renders++
		_, hasPage := vm["page"]
		_, hasUsers := vm["users"]
		assert.True(t, hasPage && hasUsers)
		return "ok", nil
	}
	NewView("v", map[string]Source{"page": page, "users": users}, tmpl, el)

	page.Set("ownerId", 1)
	assert.Equal(t, 1, renders)

	users.Reset([]map[string]any{{"id": 1}})
	assert.Equal(t, 2, renders)

	page.Set("ownerId", 2, Silent())
	assert.Equal(t, 2, renders)
	assert.Len(t, el.writes, 2)
}

func TestView_Compose(t *testing.T) {
	m := NewModel(map[string]any{"n": 1})
	el := &recorder{}
	tmpl := func(vm map[string]any) (string, error) {
		return fmt.Sprintf("%v", vm["derived"]), nil
	}
	v := NewView("v", map[string]Source{"m": m}, tmpl, el, WithCompose(func(vm map[string]any) map[string]any {
		vm["derived"] = vm["m"].(map[string]any)["n"].(int) * 10
		return vm
	}))

	_, err := v.Render()
	require.NoError(t, err)
	m.Set("n", 2)
	assert.Equal(t, []string{"10", "20"}, el.writes)
}

func TestView_RenderErrorReturnedAndPanicsOnEvent(t *testing.T) {
	m := NewModel(nil)
	el := &recorder{}
	boom := errors.New("boom")
	var observed error
	v := NewView("broken", map[string]Source{"m": m}, func(map[string]any) (string, error) {
		return "", boom
	}, el, WithRenderObserver(func(_ string, _ time.Duration, err error) { observed = err }))

	_, err := v.Render()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "broken", re.View)
	assert.ErrorIs(t, observed, boom)
	assert.Empty(t, el.writes)

	assert.Panics(t, func() { m.Set("x", 1) })
}

func TestView_Close(t *testing.T) {
	m := NewModel(nil)
	el := &recorder{}
	v := NewView("v", map[string]Source{"m": m}, func(map[string]any) (string, error) { return "x", nil }, el)
	v.Close()

	m.Set("a", 1)
	assert.Empty(t, el.writes)
	assert.Equal(t, 0, m.Count(EventChange))
}
