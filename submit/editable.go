package submit

import (
	"fmt"
	"strconv"

	"modworks/api"
)

// EditableModProfile is the local working copy of a mod profile. Each field
// carries its own dirty flag; clean fields follow the latest server
// snapshot via SyncFrom while dirty fields hold their staged edit.
type EditableModProfile struct {
	ModID int64 // api.NullID for a brand-new mod

	Name         Field[string]
	NameID       Field[string]
	Summary      Field[string]
	Description  Field[string]
	HomepageURL  Field[string]
	MetadataBlob Field[string]
	Status       Field[api.ModStatus]
	Visible      Field[api.ModVisibility]

	// LogoPath stages a local image file to upload as the logo.
	LogoPath Field[string]
	// GalleryImagePaths stages local image files for the gallery.
	GalleryImagePaths Field[[]string]

	YoutubeURLs   Field[[]string]
	SketchfabURLs Field[[]string]

	Tags         Field[[]string]
	MetadataKVPs Field[[]api.MetadataKVP]
}

// NewEditable returns an empty working copy for a brand-new mod.
func NewEditable() *EditableModProfile {
	return &EditableModProfile{ModID: api.NullID}
}

// EditableFrom builds a clean working copy tracking an existing profile.
func EditableFrom(p *api.ModProfile) *EditableModProfile {
	e := &EditableModProfile{ModID: p.ID}
	e.SyncFrom(p)
	return e
}

// SyncFrom refreshes every clean field from a fresher server snapshot, so
// untouched fields always reflect the latest server truth while staged
// edits survive until submitted or reverted.
func (e *EditableModProfile) SyncFrom(p *api.ModProfile) {
	e.Name.Sync(p.Name)
	e.NameID.Sync(p.NameID)
	e.Summary.Sync(p.Summary)
	e.Description.Sync(p.Description)
	e.HomepageURL.Sync(p.HomepageURL)
	e.MetadataBlob.Sync(p.MetadataBlob)
	e.Status.Sync(p.Status)
	e.Visible.Sync(p.Visible)
	e.YoutubeURLs.Sync(append([]string(nil), p.Media.YoutubeURLs...))
	e.SketchfabURLs.Sync(append([]string(nil), p.Media.SketchfabURLs...))
	e.Tags.Sync(p.TagNames())
	e.MetadataKVPs.Sync(append([]api.MetadataKVP(nil), p.MetadataKVPs...))
}

// coreFieldsDirty reports whether any field of the edit-core-fields call is
// staged.
func (e *EditableModProfile) coreFieldsDirty() bool {
	return e.Name.Dirty() || e.NameID.Dirty() || e.Summary.Dirty() ||
		e.Description.Dirty() || e.HomepageURL.Dirty() || e.MetadataBlob.Dirty() ||
		e.Status.Dirty() || e.Visible.Dirty()
}

// coreFields collects the dirty scalar fields into wire form.
func (e *EditableModProfile) coreFields() map[string]string {
	fields := make(map[string]string)
	if e.Name.Dirty() {
		fields["name"] = e.Name.Value()
	}
	if e.NameID.Dirty() {
		fields["name_id"] = e.NameID.Value()
	}
	if e.Summary.Dirty() {
		fields["summary"] = e.Summary.Value()
	}
	if e.Description.Dirty() {
		fields["description"] = e.Description.Value()
	}
	if e.HomepageURL.Dirty() {
		fields["homepage_url"] = e.HomepageURL.Value()
	}
	if e.MetadataBlob.Dirty() {
		fields["metadata_blob"] = e.MetadataBlob.Value()
	}
	if e.Status.Dirty() {
		fields["status"] = strconv.Itoa(int(e.Status.Value()))
	}
	if e.Visible.Dirty() {
		fields["visible"] = strconv.Itoa(int(e.Visible.Value()))
	}
	return fields
}

func (e *EditableModProfile) markCoreClean() {
	e.Name.markClean()
	e.NameID.markClean()
	e.Summary.markClean()
	e.Description.markClean()
	e.HomepageURL.markClean()
	e.MetadataBlob.markClean()
	e.Status.markClean()
	e.Visible.markClean()
}

// ValidateForCreation checks the locally known requirements for a new mod
// before any network call is made.
func (e *EditableModProfile) ValidateForCreation() error {
	if e.Name.Value() == "" {
		return fmt.Errorf("a new mod requires a name")
	}
	if e.Summary.Value() == "" {
		return fmt.Errorf("a new mod requires a summary")
	}
	if e.LogoPath.Value() == "" {
		return fmt.Errorf("a new mod requires a logo image")
	}
	return nil
}
