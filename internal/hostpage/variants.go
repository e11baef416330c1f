package hostpage

// UIVariant is one of the two supported host-UI selector sets for locating
// the meeting-end and captions-toggle controls.
type UIVariant struct {
	Name           string
	MeetingEnd     Control
	CaptionsToggle Control
	ChatToggle     Control
}

// VariantIconFont matches the older icon-font based UI.
func VariantIconFont() UIVariant {
	return UIVariant{
		Name:           "icon-font",
		MeetingEnd:     Control{Selector: ".google-material-icons", Label: "call_end"},
		CaptionsToggle: Control{Selector: ".material-icons-extended", Label: "closed_caption_off"},
		ChatToggle:     Control{Selector: ".google-material-icons", Label: "chat"},
	}
}

// VariantIconSet matches the newer icon-set based UI.
func VariantIconSet() UIVariant {
	return UIVariant{
		Name:           "icon-set",
		MeetingEnd:     Control{Selector: ".google-symbols", Label: "call_end"},
		CaptionsToggle: Control{Selector: ".google-symbols", Label: "closed_caption_off"},
		ChatToggle:     Control{Selector: ".google-symbols", Label: "chat"},
	}
}

// VariantByName resolves a configured variant name, defaulting to the newer
// icon-set UI.
func VariantByName(name string) UIVariant {
	if name == "icon-font" {
		return VariantIconFont()
	}
	return VariantIconSet()
}

// Field names the agent uses for extracted caption/chat item text, mirroring
// the container-scoped sub-selectors of the host page.
const (
	FieldCaptionSpeaker = "speaker"
	FieldCaptionText    = "text"
	FieldChatSender     = "sender"
	FieldChatText       = "text"
)
