package flow

// Button is one inline choice offered to the user. Data round-trips through
// the callback codec in callback.go.
type Button struct {
	Label string
	Data  string
}

// Reply is the user-facing outcome of a flow transition: a message and an
// optional inline keyboard, one row per Buttons entry. EditPrevious asks the
// transport to rewrite the message the user clicked instead of posting a new
// one, keeping the chat compact as the flow advances.
type Reply struct {
	Text         string
	Buttons      [][]Button
	EditPrevious bool
}

func textReply(text string) Reply {
	return Reply{Text: text}
}

// User-facing status messages for every flow outcome.
const (
	MsgNoResults         = "No results found. Please try a different search term."
	MsgSearchUnavailable = "Unable to search YouTube at the moment. Please try again later."
	MsgChooseResult      = "Please select a video from these search results:"
	MsgChooseFormat      = "Choose format:"
	MsgChooseQuality     = "Select video quality:"
	MsgInvalidSelection  = "Invalid selection. Please try again."
	MsgSearchExpired     = "Your search session has expired. Please search again."
	MsgSelectionExpired  = "Your selection has expired. Please search again."
	MsgNoFormats         = "No video formats available. Please try another video."
	MsgUnavailable       = "This content is unavailable. Please try another video."
	MsgTooLarge          = "The file is still too large to send even after compression. Please try a shorter video."
	MsgProcessingFailed  = "Could not process this video. Please try another video or quality."
	MsgSendFailed        = "Could not send the file. It might be too large for Telegram."
	MsgCanceled          = "Current operation canceled. You can start a new search or use other commands."
	MsgAudioSent         = "Here is your audio. Enjoy!"
	MsgVideoSent         = "Here is your video. Enjoy!"
)
