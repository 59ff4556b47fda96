package submit

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"

	"modworks/api"
	"modworks/storage"

	"go.uber.org/zap"
)

// API is the remote surface the engine drives. *api.Client implements it.
type API interface {
	GetMod(modID int64) (*api.ModProfile, error)
	AddMod(fields map[string]string, logo api.FileField) (*api.ModProfile, error)
	EditMod(modID int64, fields map[string]string) (*api.ModProfile, error)
	AddModMedia(modID int64, fields map[string]string, files []api.FileField) error
	DeleteModMedia(modID int64, fields url.Values) error
	AddModTags(modID int64, tags []string) error
	DeleteModTags(modID int64, tags []string) error
	AddModKVPs(modID int64, kvps []api.MetadataKVP) error
	DeleteModKVPs(modID int64, kvps []api.MetadataKVP) error
}

// Engine converges server state to a locally edited profile with the
// minimal ordered set of remote calls. The server treats every sub-resource
// call as a stateful mutation of the same mod, so the steps of one
// submission run strictly sequentially and the first failure aborts the
// rest; steps already completed server-side are not rolled back — retrying
// the whole submission is safe and cheap.
type Engine struct {
	api API
	fs  storage.Storage
	log *zap.SugaredLogger
}

// NewEngine returns a submission engine.
func NewEngine(remote API, fs storage.Storage, log *zap.SugaredLogger) *Engine {
	return &Engine{api: remote, fs: fs, log: log}
}

// step is one queued remote mutation of a submission chain.
type step struct {
	name string
	run  func() error
}

// Submit reconciles the staged edits against the base server snapshot.
// base is the last-known server profile (nil only for a brand-new mod).
// The final chain step always re-fetches the canonical profile, so the
// caller never receives a view assembled from request echoes; with nothing
// dirty that fetch is the only call issued.
func (s *Engine) Submit(base *api.ModProfile, edit *EditableModProfile) (*api.ModProfile, error) {
	if edit.ModID == api.NullID {
		return s.submitNew(edit)
	}
	if base == nil {
		return nil, fmt.Errorf("submission requires the last-known server profile for mod %d", edit.ModID)
	}

	steps := s.buildSteps(base, edit)
	for _, st := range steps {
		if err := st.run(); err != nil {
			return nil, fmt.Errorf("submission step %q failed: %w", st.name, err)
		}
	}

	final, err := s.api.GetMod(edit.ModID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile after submission: %w", err)
	}
	edit.SyncFrom(final)
	return final, nil
}

// buildSteps queues the minimal mutations, in fixed order: core fields,
// logo, gallery, link arrays, tags, metadata.
func (s *Engine) buildSteps(base *api.ModProfile, edit *EditableModProfile) []step {
	var steps []step
	modID := edit.ModID

	if edit.coreFieldsDirty() {
		fields := edit.coreFields()
		steps = append(steps, step{"edit core fields", func() error {
			if _, err := s.api.EditMod(modID, fields); err != nil {
				return err
			}
			edit.markCoreClean()
			return nil
		}})
	}

	steps = append(steps, s.logoSteps(edit)...)
	steps = append(steps, s.gallerySteps(base, edit)...)
	steps = append(steps, s.linkSteps(base, edit)...)
	steps = append(steps, s.tagSteps(base, edit)...)
	steps = append(steps, s.kvpSteps(base, edit)...)
	return steps
}

func (s *Engine) logoSteps(edit *EditableModProfile) []step {
	if !edit.LogoPath.Dirty() {
		return nil
	}
	path := edit.LogoPath.Value()
	if !s.fs.FileExists(path) {
		// Known quirk: a staged logo whose file vanished is skipped, not an
		// error. Logged so the data loss is at least visible.
		s.log.Warnw("Skipping staged logo: file no longer exists", zap.String("path", path))
		edit.LogoPath.markClean()
		return nil
	}
	return []step{{"upload logo", func() error {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read staged logo %q: %w", path, err)
		}
		file := api.FileField{Field: "logo", FileName: filepath.Base(path), Data: data}
		if err := s.api.AddModMedia(edit.ModID, nil, []api.FileField{file}); err != nil {
			return err
		}
		edit.LogoPath.markClean()
		return nil
	}}}
}

// gallerySteps uploads new local gallery images as one zip bundle and
// deletes server images no longer referenced, each in a single call.
func (s *Engine) gallerySteps(base *api.ModProfile, edit *EditableModProfile) []step {
	if !edit.GalleryImagePaths.Dirty() {
		return nil
	}
	var steps []step
	modID := edit.ModID

	uploaded := make(map[string]struct{}, len(base.Media.Images))
	for _, img := range base.Media.Images {
		uploaded[img.FileName] = struct{}{}
	}

	var newPaths []string
	kept := make(map[string]struct{})
	for _, path := range edit.GalleryImagePaths.Value() {
		name := filepath.Base(path)
		if _, ok := uploaded[name]; ok {
			kept[name] = struct{}{}
			continue
		}
		if !s.fs.FileExists(path) {
			s.log.Warnw("Skipping staged gallery image: file no longer exists", zap.String("path", path))
			continue
		}
		newPaths = append(newPaths, path)
	}

	if len(newPaths) > 0 {
		steps = append(steps, step{"upload gallery images", func() error {
			bundle, err := s.bundleImages(newPaths)
			if err != nil {
				return err
			}
			file := api.FileField{Field: "images", FileName: "images.zip", Data: bundle}
			return s.api.AddModMedia(modID, nil, []api.FileField{file})
		}})
	}

	var removedNames []string
	for _, img := range base.Media.Images {
		if _, ok := kept[img.FileName]; !ok {
			removedNames = append(removedNames, img.FileName)
		}
	}
	if len(removedNames) > 0 {
		steps = append(steps, step{"delete gallery images", func() error {
			fields := url.Values{}
			for i, name := range removedNames {
				fields.Set(fmt.Sprintf("images[%d]", i), name)
			}
			return s.api.DeleteModMedia(modID, fields)
		}})
	}

	if len(steps) > 0 {
		last := steps[len(steps)-1]
		steps[len(steps)-1] = step{last.name, func() error {
			if err := last.run(); err != nil {
				return err
			}
			edit.GalleryImagePaths.markClean()
			return nil
		}}
	} else {
		edit.GalleryImagePaths.markClean()
	}
	return steps
}

// bundleImages zips the staged image files into one archive for a single
// upload call.
func (s *Engine) bundleImages(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, path := range paths {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read gallery image %q: %w", path, err)
		}
		entry, err := w.Create(filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("failed to bundle gallery image %q: %w", path, err)
		}
		if _, err := entry.Write(data); err != nil {
			return nil, fmt.Errorf("failed to bundle gallery image %q: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize image bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// linkSteps diffs the video and external-model link arrays the same way
// tags are diffed.
func (s *Engine) linkSteps(base *api.ModProfile, edit *EditableModProfile) []step {
	var steps []step
	modID := edit.ModID

	build := func(field string, f *Field[[]string], previous []string) {
		if !f.Dirty() {
			return
		}
		removed, added := DiffStrings(previous, f.Value())
		if len(removed) == 0 && len(added) == 0 {
			f.markClean()
			return
		}
		if len(removed) > 0 {
			steps = append(steps, step{"delete " + field + " links", func() error {
				fields := url.Values{}
				for i, link := range removed {
					fields.Set(fmt.Sprintf("%s[%d]", field, i), link)
				}
				return s.api.DeleteModMedia(modID, fields)
			}})
		}
		if len(added) > 0 {
			steps = append(steps, step{"add " + field + " links", func() error {
				fields := make(map[string]string, len(added))
				for i, link := range added {
					fields[fmt.Sprintf("%s[%d]", field, i)] = link
				}
				return s.api.AddModMedia(modID, fields, nil)
			}})
		}
		last := steps[len(steps)-1]
		steps[len(steps)-1] = step{last.name, func() error {
			if err := last.run(); err != nil {
				return err
			}
			f.markClean()
			return nil
		}}
	}

	build("youtube", &edit.YoutubeURLs, base.Media.YoutubeURLs)
	build("sketchfab", &edit.SketchfabURLs, base.Media.SketchfabURLs)
	return steps
}

func (s *Engine) tagSteps(base *api.ModProfile, edit *EditableModProfile) []step {
	if !edit.Tags.Dirty() {
		return nil
	}
	removed, added := DiffStrings(base.TagNames(), edit.Tags.Value())
	if len(removed) == 0 && len(added) == 0 {
		edit.Tags.markClean()
		return nil
	}
	var steps []step
	modID := edit.ModID
	if len(removed) > 0 {
		steps = append(steps, step{"delete tags", func() error {
			return s.api.DeleteModTags(modID, removed)
		}})
	}
	if len(added) > 0 {
		steps = append(steps, step{"add tags", func() error {
			return s.api.AddModTags(modID, added)
		}})
	}
	last := steps[len(steps)-1]
	steps[len(steps)-1] = step{last.name, func() error {
		if err := last.run(); err != nil {
			return err
		}
		edit.Tags.markClean()
		return nil
	}}
	return steps
}

func (s *Engine) kvpSteps(base *api.ModProfile, edit *EditableModProfile) []step {
	if !edit.MetadataKVPs.Dirty() {
		return nil
	}
	removed, added := DiffKVPs(base.MetadataKVPs, edit.MetadataKVPs.Value())
	if len(removed) == 0 && len(added) == 0 {
		edit.MetadataKVPs.markClean()
		return nil
	}
	var steps []step
	modID := edit.ModID
	if len(removed) > 0 {
		steps = append(steps, step{"delete metadata", func() error {
			return s.api.DeleteModKVPs(modID, removed)
		}})
	}
	if len(added) > 0 {
		steps = append(steps, step{"add metadata", func() error {
			return s.api.AddModKVPs(modID, added)
		}})
	}
	last := steps[len(steps)-1]
	steps[len(steps)-1] = step{last.name, func() error {
		if err := last.run(); err != nil {
			return err
		}
		edit.MetadataKVPs.markClean()
		return nil
	}}
	return steps
}

// submitNew creates a brand-new mod, then runs the remaining sub-resource
// steps against the freshly assigned id.
func (s *Engine) submitNew(edit *EditableModProfile) (*api.ModProfile, error) {
	if err := edit.ValidateForCreation(); err != nil {
		return nil, err
	}
	logoPath := edit.LogoPath.Value()
	if !s.fs.FileExists(logoPath) {
		return nil, fmt.Errorf("staged logo %q does not exist", logoPath)
	}
	logoData, err := s.fs.ReadFile(logoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged logo %q: %w", logoPath, err)
	}

	fields := map[string]string{
		"name":    edit.Name.Value(),
		"summary": edit.Summary.Value(),
	}
	if edit.NameID.Dirty() {
		fields["name_id"] = edit.NameID.Value()
	}
	if edit.Description.Dirty() {
		fields["description"] = edit.Description.Value()
	}
	if edit.HomepageURL.Dirty() {
		fields["homepage_url"] = edit.HomepageURL.Value()
	}
	if edit.MetadataBlob.Dirty() {
		fields["metadata_blob"] = edit.MetadataBlob.Value()
	}

	logo := api.FileField{Field: "logo", FileName: filepath.Base(logoPath), Data: logoData}
	created, err := s.api.AddMod(fields, logo)
	if err != nil {
		return nil, fmt.Errorf("failed to create mod: %w", err)
	}

	edit.ModID = created.ID
	edit.markCoreClean()
	edit.LogoPath.markClean()

	// Remaining staged sub-resources ride the normal chain against the new id.
	return s.Submit(created, edit)
}
