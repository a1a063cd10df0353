package display

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/zheng/ctb/internal/graph"
)

// ShortClassName drops the package from a fully qualified class name.
// e.g., "java.util.concurrent.ConcurrentHashMap" -> "ConcurrentHashMap"
// e.g., "com.example.Outer$Inner" -> "Outer$Inner"
func ShortClassName(fullName string) string {
	if idx := strings.LastIndexByte(fullName, '.'); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

// ShortSignature simplifies qualified parameter types in a method signature.
// e.g., "runWith(java.lang.Object, java.lang.Runnable)" -> "runWith(Object, Runnable)"
func ShortSignature(sig string) string {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return sig
	}
	params := sig[open+1 : len(sig)-1]
	if params == "" {
		return sig
	}

	var sb strings.Builder
	sb.WriteString(sig[:open+1])
	word := 0
	for i := 0; i < len(params); i++ {
		switch c := params[i]; c {
		case ',', ' ', '<', '>', '[', ']':
			sb.WriteString(ShortClassName(params[word:i]))
			sb.WriteByte(c)
			word = i + 1
		}
	}
	sb.WriteString(ShortClassName(params[word:]))
	sb.WriteByte(')')
	return sb.String()
}

// ShortRef renders a method reference as "Class.signature" with short names.
func ShortRef(ref graph.MethodRef) string {
	return ShortClassName(ref.Class) + "." + ShortSignature(ref.Signature)
}

// EncodeSignature makes a signature safe to use as one URL path segment.
func EncodeSignature(sig string) string {
	return url.PathEscape(sig)
}

// DecodeSignature reverses EncodeSignature.
func DecodeSignature(seg string) (string, error) {
	return url.PathUnescape(seg)
}

// EscapeSignature replaces the angle brackets of generic signatures so they
// render as text in HTML.
func EscapeSignature(sig string) string {
	return signatureEscaper.Replace(sig)
}

var signatureEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// CalcTreeMaxWidth calculates the maximum label width and depth for alignment in the call tree.
func CalcTreeMaxWidth(tree []*graph.TreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(ShortRef(node.Edge.Ref()))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatCallTree renders a call tree as a string with box-drawing characters.
// Each line carries the method and the edge phrase that reached it.
func FormatCallTree(tree []*graph.TreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		label := ShortRef(node.Edge.Ref())
		note := node.Edge.Type
		if node.Cycle {
			note += " (cycle)"
		} else if node.Seen {
			note += " (see above)"
		}
		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, label, note))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatCallTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

// RenderTree formats a whole tree under its root label.
func RenderTree(root graph.MethodRef, tree []*graph.TreeNode) string {
	maxWidth, maxDepth := 0, 0
	CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	return ShortRef(root) + "\n" + FormatCallTree(tree, "", maxWidth, maxDepth, 0)
}
