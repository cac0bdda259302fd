package llm

// Prompt templates for the four vision call types. Each call expects the
// page/table/figure images to be attached after the text content.

// ContextMetadataPrompt asks for the per-page structured record, using the
// neighbouring pages as context. The three placeholders take the current,
// previous, and next page text.
const ContextMetadataPrompt = `You are a technical documentation assistant. You are given the rendered
images of up to three consecutive pages of a technical manual (previous,
current, next) together with their extracted text. Analyse the CURRENT page
and produce structured metadata as a single JSON object with this shape:

{
  "document_title": "string or omit - the manual's title if visible",
  "document_id": "string or omit - document/part identifier, e.g. 'TI-P405-32'",
  "revision": "string or omit - revision/issue marker",
  "manufacturer": "string or omit",
  "models": ["product models this document covers"],
  "visual_description": "2-4 sentences describing the current page's visible layout and content",
  "section": "the section or chapter the current page belongs to, if determinable",
  "content_elements": [
    {
      "type": "heading|paragraph|table|figure",
      "element_id": "for tables/figures, their identifier if given",
      "title": "short label",
      "summary": "1-2 sentences",
      "keywords": ["searchable terms"],
      "entities": ["model numbers, standards, part numbers"]
    }
  ]
}

Document-level fields must describe the document as a whole, not this page.
Use the neighbouring pages only to resolve context (running headers, section
numbering, continued tables). Respond with the JSON object only.

Current page text:
%s

Previous page text:
%s

Next page text:
%s`

// TableMetadataPrompt asks for retrieval metadata for one table. The table
// image is attached; the (corrected) markup is appended after the prompt.
const TableMetadataPrompt = `You are a technical documentation assistant specializing in extracting
structured metadata for tables from engineering manuals.

You are given the image of a table and its HTML markup. Generate metadata as
a single JSON object:

{
  "title": "short descriptive title, max 15 words",
  "summary": "1-2 sentence explanation of what the table shows",
  "keywords": ["5-10 searchable terms"],
  "dates": ["date mentions"] or null,
  "locations": ["geographic or organizational references"] or null,
  "entities": ["model numbers, standards, brands, part numbers"] or null,
  "model_name": "product/model identifier, e.g. 'BBV43'" or null,
  "component_type": "the component the table describes" or null,
  "application_context": ["industry or application domains"] or null,
  "related_figures": [{"label": "e.g. 'Fig. 1'", "description": "how it relates"}] or null
}

Use precise, domain-specific language. Respond with the JSON object only.

Table markup:
%s`

// ImageMetadataPrompt asks for retrieval metadata for one extracted figure.
// The figure image is attached; the page text gives surrounding context.
const ImageMetadataPrompt = `You are a technical documentation assistant specializing in extracting
structured metadata for images and diagrams from engineering manuals.

Classify the attached image first:
- "diagram": technical drawings, schematics, flowcharts, exploded views,
  wiring diagrams, assembly diagrams
- "image": photos, illustrations, logos, product pictures

Then generate metadata as a single JSON object:

{
  "image_type": "diagram" or "image",
  "title": "short descriptive title, max 15 words",
  "summary": "1-2 sentence explanation with context",
  "natural_description": "detailed description of what is visually shown: key components, labels, callouts, spatial relationships, technical details",
  "keywords": ["5-10 searchable terms"],
  "dates": ["date mentions"] or null,
  "locations": ["geographic or organizational references"] or null,
  "entities": ["model numbers, standards, brands, part numbers"] or null,
  "model_name": "product/model identifier" or null,
  "component_type": "the component shown" or null,
  "model_applicability": ["specific models this applies to"] or null,
  "application_context": ["industry or application domains"] or null,
  "related_tables": [{"label": "e.g. 'Table 1'", "description": "how it relates"}] or null
}

Use the page text below to resolve captions, figure labels and model
references. Respond with the JSON object only.

Page text:
%s`

// ImproveTableStructurePrompt asks for visually-corrected table markup.
// The table image is attached; the extracted markup is substituted in.
const ImproveTableStructurePrompt = `You are an expert table structure analyst with a visual-first approach.
You are given the image of a technical table and the HTML extracted for it.
Correct the HTML so that it matches the image exactly:

1. Count the visible rows and columns; the corrected HTML must have the same
   grid. Every visible cell, header tier and divider must be represented.
2. Cell text must match the image character for character, including units
   and special characters (m3/h, bar, degree symbols, superscripts).
3. Use colspan/rowspan only where the image visually merges cells. If the
   same value appears under several column headers, keep each occurrence as
   its own cell - do not merge duplicates.
4. Represent empty cells explicitly as <td></td>; never omit them.
5. Do not invent, reorder or drop data.

Respond with the corrected HTML table only - no commentary, no code fences.

Extracted HTML:
%s`
