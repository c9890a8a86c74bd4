package ui

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Client message keys used by the bundled templates.
const (
	MsgSearch        = "_rave_client.common.search"
	MsgClear         = "_rave_client.common.clear"
	MsgPrevious      = "_rave_client.common.previous"
	MsgNext          = "_rave_client.common.next"
	MsgShowing       = "_rave_client.share.showing"
	MsgNoResults     = "_rave_client.share.no_results"
	MsgName          = "_rave_client.share.name"
	MsgUsername      = "_rave_client.share.username"
	MsgOwner         = "_rave_client.share.owner"
	MsgAddMember     = "_rave_client.share.add_member"
	MsgRemoveMember  = "_rave_client.share.remove_member"
	MsgAddEditor     = "_rave_client.share.add_editor"
	MsgRemoveEditor  = "_rave_client.share.remove_editor"
	MsgSharePageHint = "_rave_client.share.hint"
)

// supported lists the catalog languages, default first.
var supported = []language.Tag{language.English, language.German}

var clientMessages = map[language.Tag]map[string]string{
	language.English: {
		MsgSearch:        "Search",
		MsgClear:         "Clear",
		MsgPrevious:      "Previous",
		MsgNext:          "Next",
		MsgShowing:       "Showing %d-%d of %d",
		MsgNoResults:     "No users found",
		MsgName:          "Name",
		MsgUsername:      "Username",
		MsgOwner:         "Owner",
		MsgAddMember:     "Share",
		MsgRemoveMember:  "Unshare",
		MsgAddEditor:     "Make editor",
		MsgRemoveEditor:  "Revoke editing",
		MsgSharePageHint: "Search for people to share this page with.",
	},
	language.German: {
		MsgSearch:        "Suchen",
		MsgClear:         "Zurücksetzen",
		MsgPrevious:      "Zurück",
		MsgNext:          "Weiter",
		MsgShowing:       "%d-%d von %d",
		MsgNoResults:     "Keine Benutzer gefunden",
		MsgName:          "Name",
		MsgUsername:      "Benutzername",
		MsgOwner:         "Besitzer",
		MsgAddMember:     "Teilen",
		MsgRemoveMember:  "Nicht mehr teilen",
		MsgAddEditor:     "Zum Bearbeiter machen",
		MsgRemoveEditor:  "Bearbeitung entziehen",
		MsgSharePageHint: "Suchen Sie nach Personen, mit denen Sie diese Seite teilen möchten.",
	},
}

func newCatalog() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range clientMessages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// Messages resolves client message keys for one locale. Unknown keys are
// returned as-is.
type Messages struct {
	printer *message.Printer
}

// NewMessages builds the catalog for locale, a BCP 47 tag such as "en" or
// "de-CH". An empty locale means English.
func NewMessages(locale string) (*Messages, error) {
	tag := language.English
	if locale != "" {
		t, err := language.Parse(locale)
		if err != nil {
			return nil, err
		}
		tag = t
	}
	cat, err := newCatalog()
	if err != nil {
		return nil, err
	}
	_, idx, _ := language.NewMatcher(supported).Match(tag)
	return &Messages{printer: message.NewPrinter(supported[idx], message.Catalog(cat))}, nil
}

// Get formats the message stored under key.
func (m *Messages) Get(key string, args ...any) string {
	return m.printer.Sprintf(message.Key(key, key), args...)
}
