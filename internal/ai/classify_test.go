package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

var testCategories = []string{"Hitna pomoć/Sigurnost", "Prijava tehničkog problema", "Prijedlog za unapređenje", "Opća prijava/Upit"}

func TestClassify(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		writeCandidate(w, `{"suggestedCategory":"Prijava tehničkog problema","reason":"Projektor ne radi."}`)
	})

	res, err := c.Classify(context.Background(), "Projektor u učionici 12 ne radi", testCategories)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.SuggestedCategory != "Prijava tehničkog problema" || res.Reason != "Projektor ne radi." {
		t.Errorf("result = %+v", res)
	}

	gc := got.GenerationConfig
	if gc == nil || gc.ResponseMIMEType != "application/json" || gc.ResponseSchema == nil {
		t.Fatalf("generation config = %+v", gc)
	}
	if len(gc.ResponseSchema.Required) != 2 {
		t.Errorf("required = %v", gc.ResponseSchema.Required)
	}
	if d := gc.ResponseSchema.Properties["suggestedCategory"].Description; !strings.Contains(d, "Opća prijava/Upit") {
		t.Errorf("category description = %q", d)
	}
	prompt := got.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, `Opis: "Projektor u učionici 12 ne radi".`) {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, body := range []string{"not json", `{"reason":"bez kategorije"}`, `["a"]`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeCandidate(w, body)
		})
		if _, err := c.Classify(context.Background(), "x", testCategories); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%q: err = %v, want ErrMalformedResponse", body, err)
		}
	}
}
