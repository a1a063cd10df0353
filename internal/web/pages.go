package web

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
)

const pageStyle = `body { font-family: monospace; } .count { float: left; width: 80px; }`

// page streams an HTML document with the navigation header; body writes the
// content.
func page(w http.ResponseWriter, body func(io.Writer)) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<html><head><style>%s</style></head><body>\n", pageStyle)
	io.WriteString(bw, "<a href=\"/\">VM entry-points</a>&nbsp;&nbsp;<a href=\"/classes\">class index</a>\n")
	body(bw)
	io.WriteString(bw, "</body></html>\n")
	_ = bw.Flush()
}

func classLink(cls string) string {
	return fmt.Sprintf("<a href=\"/class/%s\">%s</a>", display.EncodeSignature(cls), html.EscapeString(cls))
}

func methodLink(ref graph.MethodRef, label string) string {
	return fmt.Sprintf("<a href=\"/method/%s/%s\">%s</a>",
		display.EncodeSignature(ref.Class), display.EncodeSignature(ref.Signature), label)
}

func (s *Server) handleEntrypointsPage(w http.ResponseWriter, r *http.Request) {
	entries := s.graph.Store().ListEntrypoints()
	page(w, func(out io.Writer) {
		io.WriteString(out, "<h1>VM entry-points</h1>\n")
		for _, ref := range entries {
			label := html.EscapeString(ref.Class) + "." + display.EscapeSignature(ref.Signature)
			fmt.Fprintf(out, "%s<br>\n", methodLink(ref, label))
		}
	})
}

func (s *Server) handleClassesPage(w http.ResponseWriter, r *http.Request) {
	classes := s.graph.Store().ListClasses()
	page(w, func(out io.Writer) {
		io.WriteString(out, "<h1>Classes</h1>\n")
		for _, cls := range classes {
			fmt.Fprintf(out, "%s<br>\n", classLink(cls))
		}
	})
}

func (s *Server) handleClassPage(w http.ResponseWriter, r *http.Request) {
	cls, err := pathParam(r, "cls")
	if err != nil {
		http.Error(w, "Invalid class name", http.StatusBadRequest)
		return
	}
	info, err := s.graph.Store().GetClass(cls)
	if err != nil {
		http.Error(w, fmt.Sprintf("Class %s not found", cls), statusFor(err))
		return
	}

	page(w, func(out io.Writer) {
		fmt.Fprintf(out, "<h1>class %s</h1>\n", html.EscapeString(info.Name))
		for _, m := range info.Methods {
			fmt.Fprintf(out, "<span class=\"count\">IN %d</span>\n", m.ReverseCount)
			fmt.Fprintf(out, "<span class=\"count\">OUT %d</span>\n", m.ForwardCount)
			ref := graph.MethodRef{Class: info.Name, Signature: m.Signature}
			fmt.Fprintf(out, "%s<br>\n", methodLink(ref, display.EscapeSignature(m.Signature)))
		}
	})
}

func (s *Server) handleMethodPage(w http.ResponseWriter, r *http.Request) {
	ref, err := methodParams(r)
	if err != nil {
		http.Error(w, "Invalid method reference", http.StatusBadRequest)
		return
	}
	store := s.graph.Store()
	if _, err := store.GetClass(ref.Class); err != nil {
		http.Error(w, fmt.Sprintf("Class %s not found", ref.Class), statusFor(err))
		return
	}
	info, err := store.GetMethod(ref.Class, ref.Signature)
	if err != nil {
		http.Error(w, fmt.Sprintf("Method %s not found", ref.Signature), statusFor(err))
		return
	}

	page(w, func(out io.Writer) {
		fmt.Fprintf(out, "<h1>method %s</h1>\n", display.EscapeSignature(info.Signature))
		fmt.Fprintf(out, "Class: %s\n", classLink(info.Class))
		io.WriteString(out, "<h2>Calling:</h2>\n")
		writeEdges(out, info.Forward)
		io.WriteString(out, "<h2>Called by</h2>\n")
		writeEdges(out, info.Reverse)
	})
}

func writeEdges(out io.Writer, edges []graph.EdgeInfo) {
	for _, e := range edges {
		label := html.EscapeString(e.Class) + "." + display.EscapeSignature(e.Signature)
		fmt.Fprintf(out, "%s %s<br>\n", html.EscapeString(e.Type), methodLink(e.Ref(), label))
	}
}
