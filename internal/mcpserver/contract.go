package mcpserver

// RecordFormatURI identifies the record format resource.
const RecordFormatURI = "notepress://record-format"

// RecordFormat describes how synced notes are stored, so that clients can
// interpret read_note output and resolve attachment references.
const RecordFormat = `# Notepress Record Format

Every synced note is stored as one record keyed by the id the notes app
assigned to it.

## Fields

| Field         | Meaning                                                    |
|---------------|------------------------------------------------------------|
| id            | Provider id, e.g. x-coredata://…/ICNote/p12. Never changes. |
| title         | Note name at the last sync.                                |
| created_at    | Creation time as exported (ISO-8601 string).               |
| modified_at   | Modification time as exported; the only change signal.     |
| body          | Note markup (HTML).                                        |
| collection    | Folder the note was last synced from.                      |
| attachments   | Manifest of images extracted from the body.                |

## Attachments

Inline images (` + "`data:image/<subtype>;base64,…`" + `) are moved out of the body
into files named ` + "`<sequence>.<ext>`" + ` under a directory derived from the
record id, and each reference is rewritten to ` + "`file://<dir>/<sequence>.<ext>`" + `.

Each manifest entry carries:

- sequence: 1-based position among successfully extracted images
- filename: ` + "`<sequence>.<ext>`" + `
- relative_path: ` + "`<dir>/<filename>`" + `, relative to the attachment root
- media_type: ` + "`image/<subtype>`" + `, lower-cased

Images that could not be decoded stay inline in the body and are not listed.

## Sync semantics

A record is re-exported only when its modified_at differs from the stored
value. Records deleted in the notes app are never removed locally.
`
