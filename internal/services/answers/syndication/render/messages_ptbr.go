package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, "social.expert.fallback", "um dos nossos especialistas")

	message.SetString(lang, "social.hook.1", "Direto dos nossos especialistas!")
	message.SetString(lang, "social.hook.2", "Já se perguntou sobre isso?")
	message.SetString(lang, "social.hook.3", "Uma pergunta que vale a leitura.")
	message.SetString(lang, "social.hook.4", "Nova resposta de especialista.")

	message.SetString(lang, "social.template.1", "{hook}\n\n❓ {question}\n\n💡 {expertName} respondeu: \"{answerPreview}\"\n\nLeia a resposta completa: {url}")
	message.SetString(lang, "social.template.2", "{hook} {expertName} comentou \"{question}\".\n\n{answerPreview}\n\n{url}")
	message.SetString(lang, "social.template.3", "P: {question}\nR ({expertName}): {answerPreview}\n\n{hook} {url}")
	message.SetString(lang, "social.template.4", "{hook}\n\n\"{answerPreview}\"\n- {expertName}, sobre \"{question}\"\n\n{url}")
	message.SetString(lang, "social.template.5", "{expertName} respondeu \"{question}\". {hook}\n\n{answerPreview}\n\nMais: {url}")
}
