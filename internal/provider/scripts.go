package provider

// JXA scripts run through `osascript -l JavaScript`. The collection name is
// passed as argv[0], never interpolated into the source.

const metadataScript = `
function run(argv) {
  const folderName = argv[0];
  const Notes = Application("Notes");
  const folder = Notes.folders.whose({ name: folderName })[0];
  const notes = folder.notes();

  return JSON.stringify(notes.map((note) => ({
    id: note.id(),
    modified: note.modificationDate().toISOString(),
  })));
}
`

const contentScript = `
function run(argv) {
  const folderName = argv[0];
  const Notes = Application("Notes");
  const folder = Notes.folders.whose({ name: folderName })[0];
  const notes = folder.notes();

  const notesData = notes.map((note) => ({
    name: note.name(),
    id: note.id(),
    created: note.creationDate().toISOString(),
    modified: note.modificationDate().toISOString(),
    body: note.body(),
  }));

  return JSON.stringify({ notes: notesData, name: folderName });
}
`

const collectionsScript = `
function run() {
  const Notes = Application("Notes");
  if (!Notes.running()) {
    Notes.activate();
  }

  const folderData = [];
  Notes.folders().forEach((folder) => {
    try {
      let id = null;
      try { id = folder.id(); } catch (e) {}
      let noteCount = 0;
      try { noteCount = folder.notes().length; } catch (e) {}
      folderData.push({ name: folder.name(), id: id, note_count: noteCount });
    } catch (e) {
      // folder not accessible
    }
  });

  return JSON.stringify(folderData);
}
`
