package submit

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"modworks/api"
	"modworks/storage"

	"go.uber.org/zap"
)

type mediaAdd struct {
	fields map[string]string
	files  []api.FileField
}

// fakeAPI records every remote call in order and can be told to fail a
// specific method.
type fakeAPI struct {
	profile api.ModProfile

	calls        []string
	editFields   map[string]string
	mediaAdds    []mediaAdd
	mediaDeletes []url.Values
	addedTags    []string
	removedTags  []string
	addedKVPs    []api.MetadataKVP
	removedKVPs  []api.MetadataKVP

	failOn map[string]error
}

func (f *fakeAPI) record(name string) error {
	f.calls = append(f.calls, name)
	if err, ok := f.failOn[name]; ok {
		return err
	}
	return nil
}

func (f *fakeAPI) GetMod(modID int64) (*api.ModProfile, error) {
	if err := f.record("GetMod"); err != nil {
		return nil, err
	}
	p := f.profile
	return &p, nil
}

func (f *fakeAPI) AddMod(fields map[string]string, logo api.FileField) (*api.ModProfile, error) {
	if err := f.record("AddMod"); err != nil {
		return nil, err
	}
	f.editFields = fields
	p := f.profile
	return &p, nil
}

func (f *fakeAPI) EditMod(modID int64, fields map[string]string) (*api.ModProfile, error) {
	if err := f.record("EditMod"); err != nil {
		return nil, err
	}
	f.editFields = fields
	p := f.profile
	return &p, nil
}

func (f *fakeAPI) AddModMedia(modID int64, fields map[string]string, files []api.FileField) error {
	if err := f.record("AddModMedia"); err != nil {
		return err
	}
	f.mediaAdds = append(f.mediaAdds, mediaAdd{fields: fields, files: files})
	return nil
}

func (f *fakeAPI) DeleteModMedia(modID int64, fields url.Values) error {
	if err := f.record("DeleteModMedia"); err != nil {
		return err
	}
	f.mediaDeletes = append(f.mediaDeletes, fields)
	return nil
}

func (f *fakeAPI) AddModTags(modID int64, tags []string) error {
	if err := f.record("AddModTags"); err != nil {
		return err
	}
	f.addedTags = tags
	return nil
}

func (f *fakeAPI) DeleteModTags(modID int64, tags []string) error {
	if err := f.record("DeleteModTags"); err != nil {
		return err
	}
	f.removedTags = tags
	return nil
}

func (f *fakeAPI) AddModKVPs(modID int64, kvps []api.MetadataKVP) error {
	if err := f.record("AddModKVPs"); err != nil {
		return err
	}
	f.addedKVPs = kvps
	return nil
}

func (f *fakeAPI) DeleteModKVPs(modID int64, kvps []api.MetadataKVP) error {
	if err := f.record("DeleteModKVPs"); err != nil {
		return err
	}
	f.removedKVPs = kvps
	return nil
}

func baseProfile() *api.ModProfile {
	return &api.ModProfile{
		ID:      42,
		Name:    "Sample Mod",
		Summary: "A sample",
		Media: api.ModMedia{
			YoutubeURLs: []string{"https://youtu.be/abc"},
		},
		Tags: []api.Tag{{Name: "A"}, {Name: "B"}},
		MetadataKVPs: []api.MetadataKVP{
			{Key: "difficulty", Value: "1"},
		},
	}
}

func newTestEngine(remote *fakeAPI) (*Engine, *storage.Memory) {
	fs := storage.NewMemory()
	return NewEngine(remote, fs, zap.NewNop().Sugar()), fs
}

func TestSubmitNothingDirty(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	final, err := engine.Submit(base, edit)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if final == nil || final.ID != base.ID {
		t.Fatalf("expected current server profile back, got %+v", final)
	}
	if want := []string{"GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("calls = %v, want %v", remote.calls, want)
	}
}

func TestSubmitCoreFields(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	remote.profile.Name = "Renamed Mod"
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.Name.Set("Renamed Mod")

	final, err := engine.Submit(base, edit)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"EditMod", "GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Fatalf("calls = %v, want %v", remote.calls, want)
	}
	if remote.editFields["name"] != "Renamed Mod" {
		t.Errorf("name field = %q, want %q", remote.editFields["name"], "Renamed Mod")
	}
	if edit.Name.Dirty() {
		t.Error("Name should be clean after submission")
	}
	if edit.Name.Value() != final.Name {
		t.Errorf("Name not synced from final profile: %q", edit.Name.Value())
	}
}

func TestSubmitTagDiff(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.Tags.Set([]string{"B", "C"})

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"DeleteModTags", "AddModTags", "GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Fatalf("calls = %v, want %v", remote.calls, want)
	}
	if !reflect.DeepEqual(remote.removedTags, []string{"A"}) {
		t.Errorf("removed tags = %v, want [A]", remote.removedTags)
	}
	if !reflect.DeepEqual(remote.addedTags, []string{"C"}) {
		t.Errorf("added tags = %v, want [C]", remote.addedTags)
	}
	if edit.Tags.Dirty() {
		t.Error("Tags should be clean after submission")
	}
}

func TestSubmitTagNoEffectiveChange(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.Tags.Set([]string{"A", "B"}) // dirty, but identical to server

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("calls = %v, want %v", remote.calls, want)
	}
	if edit.Tags.Dirty() {
		t.Error("no-op tag edit should come back clean")
	}
}

func TestSubmitKVPValueChange(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.MetadataKVPs.Set([]api.MetadataKVP{{Key: "difficulty", Value: "2"}})

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"DeleteModKVPs", "AddModKVPs", "GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Fatalf("calls = %v, want %v", remote.calls, want)
	}
	if !reflect.DeepEqual(remote.removedKVPs, []api.MetadataKVP{{Key: "difficulty", Value: "1"}}) {
		t.Errorf("removed kvps = %v", remote.removedKVPs)
	}
	if !reflect.DeepEqual(remote.addedKVPs, []api.MetadataKVP{{Key: "difficulty", Value: "2"}}) {
		t.Errorf("added kvps = %v", remote.addedKVPs)
	}
}

func TestSubmitAbortsOnFirstFailure(t *testing.T) {
	base := baseProfile()
	boom := errors.New("server said no")
	remote := &fakeAPI{profile: *base, failOn: map[string]error{"DeleteModTags": boom}}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.Tags.Set([]string{"C"})

	_, err := engine.Submit(base, edit)
	if err == nil {
		t.Fatal("expected submission to fail")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the step failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "delete tags") {
		t.Errorf("error should name the failed step, got %v", err)
	}
	if want := []string{"DeleteModTags"}; !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("later steps ran after a failure: %v", remote.calls)
	}
	if !edit.Tags.Dirty() {
		t.Error("failed edit must stay dirty so a retry resubmits it")
	}
}

func TestSubmitLogoUpload(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, fs := newTestEngine(remote)

	if err := fs.WriteFile("/stage/logo.png", []byte("png bytes")); err != nil {
		t.Fatal(err)
	}
	edit := EditableFrom(base)
	edit.LogoPath.Set("/stage/logo.png")

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(remote.mediaAdds) != 1 {
		t.Fatalf("expected one media upload, got %d", len(remote.mediaAdds))
	}
	files := remote.mediaAdds[0].files
	if len(files) != 1 || files[0].Field != "logo" || files[0].FileName != "logo.png" {
		t.Errorf("unexpected logo upload: %+v", files)
	}
	if edit.LogoPath.Dirty() {
		t.Error("LogoPath should be clean after upload")
	}
}

func TestSubmitLogoMissingFileSkipped(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.LogoPath.Set("/stage/gone.png")

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("missing logo should upload nothing, calls = %v", remote.calls)
	}
	if edit.LogoPath.Dirty() {
		t.Error("skipped logo should not stay dirty forever")
	}
}

func TestSubmitGalleryBundleAndDelete(t *testing.T) {
	base := baseProfile()
	base.Media.Images = []api.ImageLocator{{FileName: "old.png"}}
	remote := &fakeAPI{profile: *base}
	engine, fs := newTestEngine(remote)

	if err := fs.WriteFile("/stage/new1.png", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile("/stage/new2.png", []byte("two")); err != nil {
		t.Fatal(err)
	}

	edit := EditableFrom(base)
	edit.GalleryImagePaths.Set([]string{"/stage/new1.png", "/stage/new2.png"})

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(remote.mediaAdds) != 1 {
		t.Fatalf("expected one bundled upload, got %d", len(remote.mediaAdds))
	}
	files := remote.mediaAdds[0].files
	if len(files) != 1 || files[0].Field != "images" || files[0].FileName != "images.zip" {
		t.Fatalf("unexpected gallery upload: %+v", files)
	}
	r, err := zip.NewReader(bytes.NewReader(files[0].Data), int64(len(files[0].Data)))
	if err != nil {
		t.Fatalf("upload is not a zip: %v", err)
	}
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	if !reflect.DeepEqual(names, []string{"new1.png", "new2.png"}) {
		t.Errorf("bundle entries = %v", names)
	}

	if len(remote.mediaDeletes) != 1 {
		t.Fatalf("expected one delete call, got %d", len(remote.mediaDeletes))
	}
	if got := remote.mediaDeletes[0].Get("images[0]"); got != "old.png" {
		t.Errorf("images[0] = %q, want old.png", got)
	}
	if edit.GalleryImagePaths.Dirty() {
		t.Error("gallery should be clean after submission")
	}
}

func TestSubmitLinkDiff(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, _ := newTestEngine(remote)

	edit := EditableFrom(base)
	edit.YoutubeURLs.Set([]string{"https://youtu.be/def"})

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := []string{"DeleteModMedia", "AddModMedia", "GetMod"}; !reflect.DeepEqual(remote.calls, want) {
		t.Fatalf("calls = %v, want %v", remote.calls, want)
	}
	if got := remote.mediaDeletes[0].Get("youtube[0]"); got != "https://youtu.be/abc" {
		t.Errorf("youtube[0] = %q", got)
	}
	if got := remote.mediaAdds[0].fields["youtube[0]"]; got != "https://youtu.be/def" {
		t.Errorf("added youtube[0] = %q", got)
	}
	if edit.YoutubeURLs.Dirty() {
		t.Error("YoutubeURLs should be clean after submission")
	}
}

func TestSubmitStepOrder(t *testing.T) {
	base := baseProfile()
	remote := &fakeAPI{profile: *base}
	engine, fs := newTestEngine(remote)

	if err := fs.WriteFile("/stage/logo.png", []byte("png")); err != nil {
		t.Fatal(err)
	}

	edit := EditableFrom(base)
	edit.Summary.Set("New summary")
	edit.LogoPath.Set("/stage/logo.png")
	edit.Tags.Set([]string{"C"})
	edit.MetadataKVPs.Set(nil)

	if _, err := engine.Submit(base, edit); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	// Fixed order: core fields, logo, tags, metadata, final fetch.
	want := []string{
		"EditMod",
		"AddModMedia",
		"DeleteModTags",
		"AddModTags",
		"DeleteModKVPs",
		"GetMod",
	}
	if !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("calls = %v, want %v", remote.calls, want)
	}
}

func TestSubmitNewMod(t *testing.T) {
	created := baseProfile()
	created.ID = 77
	remote := &fakeAPI{profile: *created}
	engine, fs := newTestEngine(remote)

	if err := fs.WriteFile("/stage/logo.png", []byte("png")); err != nil {
		t.Fatal(err)
	}

	edit := NewEditable()
	edit.Name.Set("Brand New")
	edit.Summary.Set("Fresh out of the editor")
	edit.LogoPath.Set("/stage/logo.png")
	edit.Tags.Set([]string{"C"})

	final, err := engine.Submit(nil, edit)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if edit.ModID != 77 {
		t.Errorf("ModID = %d, want 77", edit.ModID)
	}
	if final.ID != 77 {
		t.Errorf("final.ID = %d, want 77", final.ID)
	}
	// Creation carries the core fields and logo; tags ride the follow-up chain.
	want := []string{"AddMod", "DeleteModTags", "AddModTags", "GetMod"}
	if !reflect.DeepEqual(remote.calls, want) {
		t.Errorf("calls = %v, want %v", remote.calls, want)
	}
	if remote.editFields["name"] != "Brand New" {
		t.Errorf("name field = %q", remote.editFields["name"])
	}
}

func TestSubmitNewModMissingRequirements(t *testing.T) {
	remote := &fakeAPI{}
	engine, _ := newTestEngine(remote)

	edit := NewEditable()
	edit.Name.Set("No summary, no logo")

	if _, err := engine.Submit(nil, edit); err == nil {
		t.Fatal("expected validation failure")
	}
	if len(remote.calls) != 0 {
		t.Errorf("validation failure must not reach the network, calls = %v", remote.calls)
	}
}
