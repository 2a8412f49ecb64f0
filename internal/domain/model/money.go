package model

import "fmt"

// セント→"90.00"形式の文字列。負値は呼び出し側で作らない前提。
func CentsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// セント→ドルのfloat。カートの表示用レスポンスにだけ使う。
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}
