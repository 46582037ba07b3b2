package domain

import (
	"fmt"
	"strconv"
)

func CreateTestProduct(id int) Candidate {
	return Candidate{
		ID:       "prod-" + intToHex8(id),
		Title:    fmt.Sprintf("Test product %d", id),
		ImageURL: fmt.Sprintf("https://cdn.example.com/products/%d.png", id),
		Price:    float64(id%100) + 0.99,
	}
}

func intToHex8(num int) string {
	hexStr := strconv.FormatInt(int64(num), 16)

	if len(hexStr) < 8 {
		zeros := make([]byte, 8-len(hexStr))
		for i := range zeros {
			zeros[i] = '0'
		}
		hexStr = string(zeros) + hexStr
	}

	return hexStr
}
