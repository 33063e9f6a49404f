package site

const stylesheet = `body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
  line-height: 1.5;
  max-width: 800px;
  margin: 2rem auto;
  padding: 0 1rem;
  color: #1d1d1f;
  background: #ffffff;
}

h1 {
  font-size: 1.8em;
  font-weight: 500;
  margin: 0.8em 0;
}

img {
  max-width: 100%;
  height: auto;
  border-radius: 4px;
  margin: 1rem 0;
}

div {
  margin: 0.5rem 0;
}

/* monospaced note blocks */
div:has(tt) {
  font-family: Menlo, Monaco, "Courier New", monospace;
  white-space: pre;
  tab-size: 2;
  background-color: #f5f5f5;
  border-top-left-radius: 4px;
  border-top-right-radius: 4px;
  padding-top: 0.75em;
  margin: 0;
}

div:has(tt) + div:has(tt) {
  border-top-left-radius: 0;
  border-top-right-radius: 0;
  padding-top: 0;
}

div:has(tt):not(:has(+ div:has(tt))) {
  border-bottom-left-radius: 4px;
  border-bottom-right-radius: 4px;
  padding-bottom: 0.75em;
  margin-bottom: 1em;
}

div:has(tt:empty) {
  min-height: 1em;
}

tt {
  font-family: inherit;
  display: block;
  padding: 0 1em;
  font-size: 0.9em;
}

.site-link a {
  color: #666;
  text-decoration: none;
}

.published-date {
  color: #666;
  font-style: italic;
  margin-bottom: 2em;
  font-size: 0.9em;
}

.notes-list {
  list-style: none;
  padding: 0;
  max-width: 800px;
  margin: 0 auto;
}

.note-link {
  padding: 1em 0;
  border-bottom: 1px solid #eee;
  display: flex;
  justify-content: space-between;
  align-items: center;
}

.note-link a {
  text-decoration: none;
  color: #333;
  font-size: 1.1em;
}

.note-link a:hover {
  color: #007bff;
}

.note-date {
  color: #666;
  font-size: 0.9em;
}

.photo-grid {
  display: grid;
  grid-template-columns: repeat(3, 1fr);
  gap: 16px;
  max-width: 1200px;
  margin: 0 auto;
}

.photo-item {
  display: flex;
  flex-direction: column;
  text-align: center;
  color: inherit;
  text-decoration: none;
}

.photo-container {
  aspect-ratio: 1 / 1;
  overflow: hidden;
  margin-bottom: 8px;
  border-radius: 4px;
}

.photo-container img {
  width: 100%;
  height: 100%;
  margin: 0;
  object-fit: cover;
  transition: transform 0.3s ease;
}

.photo-item:hover img {
  transform: scale(1.05);
}

.photo-placeholder {
  background-color: #f0f0f0;
  width: 100%;
  height: 100%;
  display: flex;
  align-items: center;
  justify-content: center;
}

.photo-title {
  margin-top: 8px;
  font-size: 14px;
  font-weight: 500;
  overflow: hidden;
  text-overflow: ellipsis;
  white-space: nowrap;
}

.photo-date {
  font-size: 12px;
  color: #666;
  margin-top: 4px;
}

@media (max-width: 768px) {
  .photo-grid { grid-template-columns: repeat(2, 1fr); }
}

@media (max-width: 480px) {
  .photo-grid { grid-template-columns: 1fr; }
}

@media (prefers-color-scheme: dark) {
  body { color: #f5f5f7; background: #1d1d1f; }
  h1 { color: #f5f5f7; }
  div:has(tt) { background-color: #1e1e1e; color: #e0e0e0; }
  .note-link a { color: #e0e0e0; }
  .note-link { border-bottom-color: #333; }
}
`
