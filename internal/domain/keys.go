package domain

// EventKey names a kind of observed editor activity. It selects both the
// spoken utterance and the debounce bucket.
type EventKey string

// Known event keys. The set is closed for the built-in monitors but an
// editor plugin may forward any key through a notify event.
const (
	KeyFileSave          EventKey = "file.save"
	KeyFileCreate        EventKey = "file.create"
	KeyFileDelete        EventKey = "file.delete"
	KeyCopilotSuggestion EventKey = "copilot.suggestion"
	KeyCopilotAccept     EventKey = "copilot.accept"
	KeyCopilotReject     EventKey = "copilot.reject"
	KeyExtensionEnable   EventKey = "extension.enable"
	KeyExtensionDisable  EventKey = "extension.disable"
	KeyTestVoice         EventKey = "test.voice"
	KeyWorkspaceOpen     EventKey = "workspace.open"
	KeyEditorChange      EventKey = "editor.change"
	KeyTerminalExecute   EventKey = "terminal.execute"
	KeySearchStart       EventKey = "search.start"
	KeyDebugStart        EventKey = "debug.start"
	KeyDebugStop         EventKey = "debug.stop"
	KeyGitCommit         EventKey = "git.commit"
	KeyGitPush           EventKey = "git.push"
	KeyGitPull           EventKey = "git.pull"
)

func (k EventKey) String() string { return string(k) }
