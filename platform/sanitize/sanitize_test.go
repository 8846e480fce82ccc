package sanitize

import "testing"

func TestTextStripsTagsAndCollapsesWhitespace(t *testing.T) {
	got := Text("  <b>Salón</b>   <script>x</script>Bella  ")
	if got != "Salón xBella" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestStripHTMLCatchesEncodedTags(t *testing.T) {
	got := StripHTML("hola &lt;img src=x&gt;mundo")
	if got != "hola mundo" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Carmen@Example.COM "); got != "carmen@example.com" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestOptional(t *testing.T) {
	if got := Optional("   ", Text); got != nil {
		t.Fatalf("expected nil for blank input, got %q", *got)
	}
	got := Optional(" Acme ", Text)
	if got == nil || *got != "Acme" {
		t.Fatalf("unexpected result %v", got)
	}
}
