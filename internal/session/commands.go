package session

import "strings"

// Command is a recognized user instruction.
type Command int

// Recognized commands.
const (
	CmdUnknown Command = iota
	CmdReady
	CmdHelp
	CmdReset
	CmdNew
	CmdStats
	CmdClear
)

// synonyms lists the English and Thai spellings accepted for each command.
var synonyms = map[string]Command{
	"พร้อม": CmdReady,
	"ready": CmdReady,
	"yes":   CmdReady,

	"help":  CmdHelp,
	"ช่วย":  CmdHelp,
	"คำสั่ง": CmdHelp,

	"reset":  CmdReset,
	"รีเซ็ต": CmdReset,

	"new":   CmdNew,
	"ใหม่":  CmdNew,
	"คำใหม่": CmdNew,

	"stats":  CmdStats,
	"สถิติ":  CmdStats,
	"ข้อมูล": CmdStats,

	"clear":    CmdClear,
	"ล้าง":     CmdClear,
	"ลบประวัติ": CmdClear,
}

// Normalize trims and lower-cases raw input.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Classify maps normalized input to a command.
func Classify(input string) Command {
	return synonyms[input]
}
