package workflow

import (
	"fmt"
	"strings"

	"SettleX-Atlas/internal/dialogue"
	"SettleX-Atlas/internal/validate"
)

type transition int

const (
	advance transition = iota
	stay
	finish
	abandon
)

type turn struct {
	input    string
	slots    dialogue.Slots
	ticketID string
}

// step 把一个步骤的校验、槽位写入与转移放在一起。accepts 为 nil 表示任何输入都接受。
type step struct {
	accepts     func(input string) bool
	capture     func(slots *dialogue.Slots, input string)
	onAccept    transition
	onReject    transition
	acceptReply func(t turn) string
	rejectReply string
}

var affirmatives = map[string]struct{}{
	"y":       {},
	"yeah":    {},
	"yep":     {},
	"sure":    {},
	"ok":      {},
	"okay":    {},
	"proceed": {},
}

// confirms 判断输入是否为肯定回答。
func confirms(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	if strings.Contains(lower, "yes") {
		return true
	}
	_, ok := affirmatives[strings.Trim(lower, ".!")]
	return ok
}

func fixed(reply string) func(turn) string {
	return func(turn) string { return reply }
}

func onboardingSteps() []step {
	return []step{
		{
			accepts:     confirms,
			onAccept:    advance,
			onReject:    abandon,
			acceptReply: fixed("Great! Step 1: Do you have a valid **IEC (Import Export Code)**? (Yes/No)"),
			rejectReply: "No problem. You can start anytime via the 'Open Account' button.",
		},
		{
			accepts:     func(input string) bool { return confirms(input) || validate.IEC(input) },
			onAccept:    advance,
			onReject:    abandon,
			acceptReply: fixed("Perfect. Step 2: Please enter your **10-character PAN** for validation."),
			rejectReply: "You need an IEC to operate on SettleX. Please apply via the DGFT portal first.",
		},
		{
			accepts:     validate.PAN,
			capture:     func(slots *dialogue.Slots, input string) { slots.PAN = strings.ToUpper(input) },
			onAccept:    advance,
			onReject:    stay,
			acceptReply: fixed("✅ PAN Validated. Step 3: Enter your Company Name."),
			rejectReply: "❌ Invalid PAN format. It should be 5 letters, 4 numbers, 1 letter (e.g., ABCDE1234F). Try again.",
		},
		{
			capture:  func(slots *dialogue.Slots, input string) { slots.CompanyName = input },
			onAccept: advance,
			acceptReply: func(t turn) string {
				return fmt.Sprintf("Thanks. Last Step: Enter your GSTIN for %s.", t.slots.CompanyName)
			},
		},
		{
			accepts:  validate.GSTIN,
			capture:  func(slots *dialogue.Slots, input string) { slots.GSTIN = strings.ToUpper(input) },
			onAccept: finish,
			onReject: stay,
			acceptReply: func(t turn) string {
				return fmt.Sprintf("🎉 **Pre-Check Complete!**\n\nCompany: %s\nPAN: Verified\nGSTIN: Verified\n\n"+
					"Please click the 'Open Account' button in the top right to upload your docs and go live.", t.slots.CompanyName)
			},
			rejectReply: "❌ Invalid GSTIN format. It typically starts with state code (e.g., 29ABCDE1234F1Z5). Try again.",
		},
	}
}

func ticketSteps() []step {
	return []step{
		{
			accepts:     confirms,
			onAccept:    advance,
			onReject:    abandon,
			acceptReply: fixed("Okay, I'm opening a priority ticket. Please describe the issue in one sentence."),
			rejectReply: "Understood. Let me know if you need anything else.",
		},
		{
			capture:     func(slots *dialogue.Slots, input string) { slots.TicketIssue = input },
			onAccept:    advance,
			acceptReply: fixed("Got it. Please provide a valid **Transaction ID** (if applicable) or type 'NA'."),
		},
		{
			capture:  func(slots *dialogue.Slots, input string) { slots.TransactionRef = input },
			onAccept: finish,
			acceptReply: func(t turn) string {
				return fmt.Sprintf("✅ **Ticket Created: %s**\n\nIssue: %s\nRef: %s\n\nOur Ops Team has been alerted. ETA: < 2 hours.",
					t.ticketID, t.slots.TicketIssue, t.slots.TransactionRef)
			},
		},
	}
}
