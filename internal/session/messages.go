package session

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ashureev/vocabot/internal/domain"
)

// User-facing copy, in the learner's language.
const (
	msgGreeting      = "เยี่ยมมาก! 🎉 เดี๋ยวผมจะส่งคำศัพท์ให้คุณครับ..."
	msgDailyFallback = "ขออภัยครับ ตอนนี้ไม่สามารถดึงคำศัพท์ได้ กรุณาลองใหม่อีกครั้ง"
	msgNudge         = "ผมยังรอคำตอบ 'พร้อม' อยู่นะครับ 😊\n\nเมื่อคุณพร้อมฝึกคำศัพท์แล้ว ให้พิมพ์ 'พร้อม' มาได้เลย"
	msgReset         = "รีเซ็ตแล้ว! พิมพ์ 'พร้อม' เมื่อต้องการเริ่มใหม่"
	msgSearching     = "กำลังหาคำศัพท์ใหม่ให้... ⏳"
	msgNewFallback   = "ขออภัยครับ ตอนนี้ไม่สามารถดึงคำศัพท์ได้"
	msgCleared       = "🗑️ ลบประวัติคำศัพท์ทั้งหมดแล้ว! ตอนนี้สามารถได้คำซ้ำได้อีกครั้ง"

	msgHelp = "🤖 *คำสั่งที่ใช้ได้:*\n\n" +
		"• `พร้อม` - เริ่มเรียนคำศัพท์\n" +
		"• `help` - แสดงคำสั่งนี้\n" +
		"• `reset` - เริ่มใหม่\n" +
		"• `new` - ขอคำศัพท์ใหม่\n" +
		"• `stats` - ดูสถิติคำที่เรียนแล้ว\n" +
		"• `clear` - ลบประวัติคำทั้งหมด\n\n" +
		"📝 *วิธีใช้:* รอข้อความเตือน แล้วตอบ 'พร้อม' เพื่อรับคำศัพท์ประจำวัน"
)

// InvitationMessage is the daily broadcast prompt.
const InvitationMessage = "🌅 *สวัสดีครับ!*\n\nวันนี้คุณพร้อมฝึกคำศัพท์ภาษาอังกฤษหรือยัง? \n\n✨ ถ้าพร้อมแล้ว กรุณาพิมพ์ '*พร้อม*' ครับ"

func formatDaily(words string) string {
	return fmt.Sprintf("📚 *คำศัพท์วันนี้*\n\n%s\n\n💡 *ทำการบ้าน:* ลองเขียนประโยคด้วยคำเหล่านี้ดูนะครับ!\n\n🤖 พิมพ์ 'help' เพื่อดูคำสั่งเพิ่มเติม", words)
}

func formatNew(words string) string {
	return fmt.Sprintf("📚 *คำศัพท์ใหม่*\n\n%s\n\n💡 ลองฝึกใช้คำเหล่านี้ดูนะครับ!", words)
}

func formatEcho(text string) string {
	return fmt.Sprintf("ได้รับข้อความแล้ว: '%s' 👍\n\nพิมพ์ 'help' เพื่อดูคำสั่งที่ใช้ได้ครับ",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text))
}

// formatStats renders the word count and recent entries, most recent first.
func formatStats(total int, recent []domain.HistoryEntry, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📊 *สถิติการเรียนรู้*\n\n")
	fmt.Fprintf(&b, "🔢 จำนวนคำทั้งหมด: %d คำ\n\n", total)

	if len(recent) == 0 {
		b.WriteString("ยังไม่มีประวัติการเรียน\n")
		return b.String()
	}

	fmt.Fprintf(&b, "🕐 *คำล่าสุด %d คำ:*\n", statsRecent)
	for i, e := range recent {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, e.Word, e.Date.In(loc).Format("02/01 15:04"))
	}
	return b.String()
}
