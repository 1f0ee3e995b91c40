package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "social.expert.fallback", "one of our experts")

	message.SetString(lang, "social.hook.1", "Fresh from our experts!")
	message.SetString(lang, "social.hook.2", "Ever wondered about this?")
	message.SetString(lang, "social.hook.3", "Here is a question worth reading.")
	message.SetString(lang, "social.hook.4", "New expert answer just landed.")

	message.SetString(lang, "social.template.1", "{hook}\n\n❓ {question}\n\n💡 {expertName} answered: \"{answerPreview}\"\n\nRead the full answer: {url}")
	message.SetString(lang, "social.template.2", "{hook} {expertName} weighed in on \"{question}\".\n\n{answerPreview}\n\n{url}")
	message.SetString(lang, "social.template.3", "Q: {question}\nA ({expertName}): {answerPreview}\n\n{hook} {url}")
	message.SetString(lang, "social.template.4", "{hook}\n\n\"{answerPreview}\"\n- {expertName}, answering \"{question}\"\n\n{url}")
	message.SetString(lang, "social.template.5", "{expertName} has an answer for \"{question}\". {hook}\n\n{answerPreview}\n\nMore: {url}")
}
