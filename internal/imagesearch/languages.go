package imagesearch

import (
	"golang.org/x/text/language"

	"github.com/sells-group/geowave/internal/model"
)

// Languages is the fixed table of language variants searched by Multilang,
// in response order: the ten most widely spoken languages.
var Languages = []model.Language{
	{Tag: language.English, Label: "English", Phrase: "Great Wave off Kanagawa"},
	{Tag: language.Chinese, Label: "Chinese", Phrase: "神奈川沖浪裏"},
	{Tag: language.Hindi, Label: "Hindi", Phrase: "कानागावा की महान लहर"},
	{Tag: language.Spanish, Label: "Spanish", Phrase: "La gran ola de Kanagawa"},
	{Tag: language.French, Label: "French", Phrase: "La Grande Vague de Kanagawa"},
	{Tag: language.Arabic, Label: "Arabic", Phrase: "الموجة العظيمة قبالة كاناغاوا"},
	{Tag: language.Portuguese, Label: "Portuguese", Phrase: "A Grande Onda de Kanagawa"},
	{Tag: language.Russian, Label: "Russian", Phrase: "Большая волна в Канагаве"},
	{Tag: language.Japanese, Label: "Japanese", Phrase: "神奈川沖浪裏"},
	{Tag: language.German, Label: "German", Phrase: "Die große Welle vor Kanagawa"},
}
