package consts

// Session and message markers shared by the analyst and the scheduler.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// ProactivePromptPrefix marks prompts originating from a scheduled job so
	// downstream model calls can distinguish them from interactive turns.
	ProactivePromptPrefix = "Proactive Task Prompt: "

	// ProactiveUpdateFormat renders a successful proactive run as an
	// assistant message: job name, then response.
	ProactiveUpdateFormat = "🔔 [%s] Proactive Update:\n%s"

	// ProactiveErrorFormat renders a failed proactive attempt: job name,
	// attempt number, error text.
	ProactiveErrorFormat = "⚠️ [%s] Proactive Check Error (Attempt %d): %s"
)

// AnalystInstruction fixes the assistant persona for every analysis turn.
const AnalystInstruction = `You are a SOC (Security Operations Center) analyst assistant for a Wazuh deployment.

Rules:
- Be specific and concise. Use exact counts, agent names, rule levels, and timestamps from the provided data.
- Never invent numbers. If a data section reports an error, say so and summarize what did succeed.
- Severity levels: critical (rule level >= 13), high (8-12), medium (4-7), low (< 4).
- When the user asks a follow-up, ground your answer in the security data context when one is provided.`

// AnalystContextFormat embeds the user's question and the labeled security
// data sections fetched for this turn.
const AnalystContextFormat = `Question: %s

Security data fetched from the monitoring platform:
%s

Answer the question using this data. Use exact counts.`
