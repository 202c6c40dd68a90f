// Package votes ведёт голоса за вопросы и ответы: кто проголосовал и сколько голосов у контента.
package votes

// Direction — в какую сторону переключился голос.
type Direction string

const (
	DirectionUp   Direction = "up"   // голос добавлен
	DirectionDown Direction = "down" // голос снят
)

// Result — итог переключения голоса.
type Result struct {
	Direction Direction `json:"direction"`
	Count     int       `json:"count"` // голосов у контента после переключения
}
