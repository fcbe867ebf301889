package trinary

// AddTrits adds two balanced-ternary numbers with a full adder.
//
// The result has the length of the longer operand; a carry out of the most
// significant trit is dropped.
func AddTrits(left, right Trits) Trits {
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	out := make(Trits, n)
	var carry int8
	for i := 0; i < n; i++ {
		var a, b int8
		if i < len(left) {
			a = left[i]
		}
		if i < len(right) {
			b = right[i]
		}
		out[i], carry = fullAdd(a, b, carry)
	}
	return out
}

func fullAdd(a, b, carry int8) (sum, carryOut int8) {
	total := a + b + carry
	switch {
	case total > 1:
		return total - 3, 1
	case total < -1:
		return total + 3, -1
	default:
		return total, 0
	}
}
