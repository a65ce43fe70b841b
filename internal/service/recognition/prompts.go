package recognition

import "github.com/mamadbah2/maleta/internal/domain/models"

const systemPrompt = `Você é o assistente de estoque de uma empresa de semijoias vendidas em consignação.
Responda SOMENTE com um objeto JSON, sem texto antes ou depois e sem campos extras.
Categorias válidas: Anéis, Brincos, Colares, Pulseiras, Conjuntos.
Preços usam ponto decimal.`

var instructions = map[models.RecognitionTask]string{
	models.TaskProductExtraction: `Extraia os produtos da imagem (foto ou lista de preços).
Formato: {"products":[{"name":"...","sku":"...","category":"...","price":0.00,"quantity":0}]}`,
	models.TaskSaleExtraction: `Leia a nota de vendas da imagem e associe cada linha a um produto do catálogo pelo id.
Formato: {"sales":[{"productId":"...","quantity":1,"value":0.00}]}`,
	models.TaskMatchSuggestion: `Identifique qual produto do catálogo aparece na foto.
Formato: {"matchId":"...","suggestionsIds":["..."],"reason":"..."}
Use matchId apenas quando tiver certeza; caso contrário, liste sugestões.`,
}
