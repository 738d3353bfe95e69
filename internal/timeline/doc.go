// Package timeline reconciles the measured narration duration with the image
// sequence and script beats into one coherent timeline: proportional segment
// allocation, style-dependent minimum display floors with image-count
// reduction, symmetric transition overlap, and caption spans derived from
// beat boundaries.
package timeline
