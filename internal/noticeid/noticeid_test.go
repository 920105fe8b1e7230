package noticeid

import (
	"testing"
)

func TestFromTitleLink(t *testing.T) {
	title := "CSIT Exam Routine Published"
	link := "https://example.edu.np/notice/123"

	id1 := FromTitleLink(title, link)
	id2 := FromTitleLink(title, link)

	if id1 != id2 {
		t.Errorf("id not deterministic: %s != %s", id1, id2)
	}

	if len(id1) != 64 {
		t.Errorf("id wrong length: %d, expected 64", len(id1))
	}

	// Changing the title must change the id.
	id3 := FromTitleLink("BBS Exam Routine Published", link)
	if id1 == id3 {
		t.Errorf("id should change when title changes")
	}

	// Changing the link must change the id.
	id4 := FromTitleLink(title, "https://example.edu.np/notice/124")
	if id1 == id4 {
		t.Errorf("id should change when link changes")
	}
}

func TestVerify(t *testing.T) {
	title := "परीक्षा तालिका प्रकाशित"
	link := "https://example.edu.np/notice/456"

	id := FromTitleLink(title, link)

	if !Verify(id, title, link) {
		t.Errorf("Verify failed for correct data")
	}

	if Verify(id, "अर्को सूचना", link) {
		t.Errorf("Verify should fail for wrong title")
	}
}
