package digest

import "fmt"

// channelInstructionTemplate is the fixed instruction for summarizing a single
// channel's conversation. The message text is sent as the user content.
const channelInstructionTemplate = `Analyze conversations in Channel ID %s.

Format:
1. Key discussion topics
2. Important decisions
3. Action items
4. Notable quotes
5. Overall sentiment`

// crossChannelInstruction is the fixed instruction for the cross-channel
// synthesis over all channels' conversations.
const crossChannelInstruction = `Analyze conversations across all channels.

Provide a comprehensive overview:
1. Cross-channel themes
2. Interconnected discussions
3. Significant patterns
4. Overall community insights`

func channelInstruction(channelID string) string {
	return fmt.Sprintf(channelInstructionTemplate, channelID)
}
