package codegen

// intrinsic expands an operator call inline. args are the memory operands of
// the arguments; the expansion leaves its result in %rax.
type intrinsic struct {
	arity  int
	expand func(args []string) []string
}

// intrinsics maps IR operator names to their native instruction sequences
var intrinsics = map[string]intrinsic{
	"+": arithmetic("addq"),
	"-": arithmetic("subq"),
	"*": arithmetic("imulq"),
	"/": division(false),
	"%": division(true),

	"<":  comparison("setl"),
	"<=": comparison("setle"),
	">":  comparison("setg"),
	">=": comparison("setge"),
	"==": comparison("sete"),
	"!=": comparison("setne"),

	"unary_-": {arity: 1, expand: func(args []string) []string {
		return []string{
			"movq " + args[0] + ", %rax",
			"negq %rax",
		}
	}},
	"unary_not": {arity: 1, expand: func(args []string) []string {
		return []string{
			"movq " + args[0] + ", %rax",
			"xorq $1, %rax",
		}
	}},
}

// isIntrinsic reports whether name is expanded inline rather than called
func isIntrinsic(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

func arithmetic(op string) intrinsic {
	return intrinsic{arity: 2, expand: func(args []string) []string {
		return []string{
			"movq " + args[0] + ", %rax",
			op + " " + args[1] + ", %rax",
		}
	}}
}

// division sign-extends %rax into %rdx:%rax; idivq leaves the quotient in
// %rax and the remainder in %rdx
func division(remainder bool) intrinsic {
	return intrinsic{arity: 2, expand: func(args []string) []string {
		lines := []string{
			"movq " + args[0] + ", %rax",
			"cqto",
			"idivq " + args[1],
		}
		if remainder {
			lines = append(lines, "movq %rdx, %rax")
		}
		return lines
	}}
}

func comparison(setcc string) intrinsic {
	return intrinsic{arity: 2, expand: func(args []string) []string {
		return []string{
			"xorq %rax, %rax",
			"movq " + args[0] + ", %rdx",
			"cmpq " + args[1] + ", %rdx",
			setcc + " %al",
		}
	}}
}
